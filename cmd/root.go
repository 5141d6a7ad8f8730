package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bnema/keyportal/internal/config"
)

var (
	// Version is set during build
	Version = "0.1.0-dev"

	configPath string

	rootCmd = &cobra.Command{
		Use:   "keyportal",
		Short: "Keyportal - global shortcuts over the desktop portal",
		Long: `Keyportal bridges user-defined commands to the desktop's global shortcut
service (org.freedesktop.portal.GlobalShortcuts). Wayland compositors no
longer let applications grab raw key combinations; keyportal instead declares
named shortcuts to the desktop, lets the desktop bind physical keys to them
in its own settings UI, and runs your commands when they fire.`,
		SilenceUsage: true,
	}
)

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s\n" .Version}}`)

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	cobra.OnInitialize(func() {
		if configPath != "" {
			config.SetConfigPath(configPath)
		}
	})
}
