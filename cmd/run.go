package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bnema/keyportal/internal/bridge"
	"github.com/bnema/keyportal/internal/config"
	"github.com/bnema/keyportal/internal/logger"
	"github.com/bnema/keyportal/internal/portal"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the shortcut bridge",
	Long: `Run the shortcut bridge daemon. It opens a GlobalShortcuts portal session,
declares every configured action to the desktop and executes the matching
command whenever the desktop reports an activation. Editing the config file
re-declares the full shortcut set on the fly.`,
	RunE: runBridge,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runBridge(cmd *cobra.Command, args []string) error {
	if err := config.Init(); err != nil {
		return err
	}
	cfg := config.Get()
	logger.SetLevel(cfg.Logging.LogLevel)

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

	if v, err := manager.Version(); err == nil {
		logger.Debugf("portal GlobalShortcuts version %d", v)
	} else {
		logger.Warnf("could not read portal version: %v", err)
	}

	resync := func(c *config.Config) {
		manager.Resync(br.Actions(c.Actions))
	}
	br.OnReload(func() {
		if err := config.Init(); err != nil {
			logger.Errorf("config reload failed: %v", err)
			return
		}
		resync(config.Get())
	})

	if err := manager.Initialize(); err != nil {
		return fmt.Errorf("global shortcuts unavailable: %w", err)
	}

	resync(cfg)
	config.Watch(resync)

	logger.Infof("bridging %d configured actions; bind keys in your desktop's shortcut settings", len(cfg.Actions))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	return nil
}
