// Package bridge turns configured command actions into portal shortcut
// registrations and runs the commands when the desktop reports activations.
package bridge

import (
	"fmt"
	"os/exec"
	"sync"

	"github.com/bnema/keyportal/internal/config"
	"github.com/bnema/keyportal/internal/logger"
	"github.com/bnema/keyportal/internal/portal"
	"github.com/bnema/keyportal/internal/shortcuts"
)

// Bridge owns the mapping between config actions and shortcut callbacks.
type Bridge struct {
	mu     sync.Mutex
	paused bool

	// runner executes one shell command; replaced in tests.
	runner func(command string)

	// onReload is invoked by the _reload_config synthetic shortcut.
	onReload func()
}

// New creates a bridge. Set a reload hook with OnReload before handing out
// the synthetic shortcuts.
func New() *Bridge {
	b := &Bridge{}
	b.runner = runShell
	return b
}

// OnReload sets the hook fired by the _reload_config shortcut.
func (b *Bridge) OnReload(fn func()) {
	b.onReload = fn
}

// Actions converts the configured actions into portal shortcut candidates.
// Actions with a nonzero numeric id keep that id across renames; name-only
// actions derive their id from a hash of the name.
func (b *Bridge) Actions(configured []config.ActionConfig) []portal.Action {
	actions := make([]portal.Action, 0, len(configured))
	for _, ac := range configured {
		if ac.Command == "" {
			logger.Warnf("skipping action %q: no command", ac.Name)
			continue
		}
		if ac.ID == 0 && ac.Name == "" {
			logger.Warn("skipping action with neither id nor name")
			continue
		}

		var id string
		if ac.ID != 0 {
			id = shortcuts.NumericID(ac.ID)
		} else {
			id = shortcuts.NameID("cmd", ac.Name)
		}

		description := ac.Label
		if description == "" {
			description = ac.Name
		}
		if ac.Group != "" {
			description = fmt.Sprintf("[%s] %s", ac.Group, description)
		}

		command := ac.Command
		onRelease := ac.OnRelease
		actions = append(actions, portal.Action{
			ID:          id,
			Description: description,
			Trigger: func(pressed bool) {
				b.dispatch(command, pressed, onRelease)
			},
		})
	}
	return actions
}

// Synthetics returns the fixed shortcuts re-declared after every resync.
// Both trigger on press only.
func (b *Bridge) Synthetics() []portal.Action {
	return []portal.Action{
		{
			ID:          "_reload_config",
			Description: "Reload Configuration",
			Trigger: func(pressed bool) {
				if !pressed {
					return
				}
				if b.onReload != nil {
					b.onReload()
				}
			},
		},
		{
			ID:          "_pause_actions",
			Description: "Pause Action Dispatch",
			Trigger: func(pressed bool) {
				if !pressed {
					return
				}
				b.mu.Lock()
				b.paused = !b.paused
				paused := b.paused
				b.mu.Unlock()

				if paused {
					logger.Info("action dispatch paused")
				} else {
					logger.Info("action dispatch resumed")
				}
			},
		},
	}
}

// Paused reports whether action dispatch is currently suspended.
func (b *Bridge) Paused() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.paused
}

func (b *Bridge) dispatch(command string, pressed, onRelease bool) {
	// Run on press unless the action asked for release.
	if pressed == onRelease {
		return
	}
	if b.Paused() {
		logger.Debugf("dispatch paused, dropping %q", command)
		return
	}
	b.runner(command)
}

func runShell(command string) {
	cmd := exec.Command("sh", "-c", command)
	if err := cmd.Start(); err != nil {
		logger.Errorf("starting %q: %v", command, err)
		return
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			logger.Warnf("command %q: %v", command, err)
		}
	}()
}
