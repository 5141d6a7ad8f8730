package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bnema/keyportal/internal/bridge"
	"github.com/bnema/keyportal/internal/config"
	"github.com/bnema/keyportal/internal/logger"
	"github.com/bnema/keyportal/internal/portal"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Open the desktop's shortcut configuration UI",
	Long: `Open the desktop's own shortcut configuration dialog for the configured
actions. The portal session only lives as long as this process, so the
command stays in the foreground until you close it with Ctrl+C.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Init(); err != nil {
			return err
		}
		cfg := config.Get()

		bus, err := portal.ConnectSessionBus()
		if err != nil {
			return fmt.Errorf("global shortcuts unavailable: %w", err)
		}

		br := bridge.New()
		manager := portal.NewManager(bus, portal.Options{
			ParentWindow: cfg.Portal.ParentWindow,
			Synthetics:   br.Synthetics(),
		})
		defer manager.Shutdown()

		if err := manager.Initialize(); err != nil {
			return fmt.Errorf("global shortcuts unavailable: %w", err)
		}

		manager.Resync(br.Actions(cfg.Actions))

		select {
		case <-manager.Established():
		case <-time.After(30 * time.Second):
			return fmt.Errorf("timed out waiting for the portal session")
		}

		manager.Configure()
		logger.Info("configuration dialog requested; press Ctrl+C when done")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configureCmd)
}
