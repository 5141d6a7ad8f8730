package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/bnema/keyportal/internal/bridge"
	"github.com/bnema/keyportal/internal/config"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured actions and their shortcut ids",
	Long: `List the configured actions together with the stable shortcut ids they are
declared under. The ids are what the desktop's shortcut settings UI shows
next to each binding.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Init(); err != nil {
			return err
		}
		cfg := config.Get()

		if len(cfg.Actions) == 0 {
			fmt.Printf("No actions configured. Edit %s to add some.\n", config.GetConfigPath())
			return nil
		}

		br := bridge.New()
		rows := [][]string{}
		for _, ac := range cfg.Actions {
			derived := br.Actions([]config.ActionConfig{ac})
			if len(derived) == 0 {
				continue
			}
			trigger := "press"
			if ac.OnRelease {
				trigger = "release"
			}
			rows = append(rows, []string{derived[0].ID, derived[0].Description, trigger + ": " + ac.Command})
		}
		for _, s := range br.Synthetics() {
			rows = append(rows, []string{s.ID, s.Description, "built-in"})
		}

		t := table.New().
			Border(lipgloss.RoundedBorder()).
			BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == 0 { // Header row
					return lipgloss.NewStyle().
						Foreground(lipgloss.Color("99")).
						Bold(true).
						Padding(0, 1)
				}
				return lipgloss.NewStyle().Padding(0, 1)
			}).
			Headers("ID", "DESCRIPTION", "COMMAND").
			Rows(rows...)

		fmt.Println(t.String())
		fmt.Printf("Config: %s\n", config.GetConfigPath())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
