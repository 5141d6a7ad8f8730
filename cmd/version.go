package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bnema/keyportal/internal/logger"
	"github.com/bnema/keyportal/internal/portal"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		logger.Infof("keyportal %s", Version)

		// The portal version property needs no session, so report it when
		// the bus is reachable.
		bus, err := portal.ConnectSessionBus()
		if err != nil {
			logger.Debugf("session bus not reachable: %v", err)
			return
		}
		defer bus.Close()

		manager := portal.NewManager(bus, portal.Options{})
		if v, err := manager.Version(); err == nil {
			logger.Infof("portal GlobalShortcuts interface version %d", v)
		} else {
			logger.Warnf("portal GlobalShortcuts not available: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
