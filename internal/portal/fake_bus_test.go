package portal

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
)

const fakeSender = "1_42"

type fakeCall struct {
	Method string
	Args   []interface{}
}

// fakeBus implements Bus for tests: it records calls and subscriptions and
// lets tests inject signals and failures.
type fakeBus struct {
	mu      sync.Mutex
	calls   []fakeCall
	subs    map[string]int
	callErr map[string]error
	// requestPathFor overrides the request path returned from Call; by
	// default the path predicted from the handle token is returned.
	requestPathFor func(token string) dbus.ObjectPath
	version        dbus.Variant
	closed         bool

	signals chan *dbus.Signal
	callCh  chan fakeCall
}

func newFakeBus() *fakeBus {
	return &fakeBus{
		subs:    make(map[string]int),
		callErr: make(map[string]error),
		version: dbus.MakeVariant(uint32(2)),
		signals: make(chan *dbus.Signal, 32),
		callCh:  make(chan fakeCall, 32),
	}
}

func (b *fakeBus) Call(method string, args ...interface{}) (dbus.ObjectPath, error) {
	b.mu.Lock()
	err := b.callErr[method]
	if err == nil {
		b.calls = append(b.calls, fakeCall{Method: method, Args: args})
	}
	pathFor := b.requestPathFor
	b.mu.Unlock()

	if err != nil {
		return "", err
	}
	b.callCh <- fakeCall{Method: method, Args: args}

	token := handleTokenOf(args)
	if pathFor != nil {
		return pathFor(token), nil
	}
	return dbus.ObjectPath(fmt.Sprintf("%s/request/%s/%s", portalObjectPath, fakeSender, token)), nil
}

// handleTokenOf digs the handle_token out of the trailing options vardict.
func handleTokenOf(args []interface{}) string {
	if len(args) == 0 {
		return ""
	}
	options, ok := args[len(args)-1].(map[string]dbus.Variant)
	if !ok {
		return ""
	}
	token, _ := options["handle_token"].Value().(string)
	return token
}

func (b *fakeBus) Property(name string) (dbus.Variant, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.callErr["Property"]; err != nil {
		return dbus.Variant{}, err
	}
	return b.version, nil
}

func (b *fakeBus) Subscribe(path dbus.ObjectPath, iface, member string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[string(path)+" "+iface+"."+member]++
	return nil
}

func (b *fakeBus) Unsubscribe(path dbus.ObjectPath, iface, member string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[string(path)+" "+iface+"."+member]--
	return nil
}

func (b *fakeBus) Signals() <-chan *dbus.Signal { return b.signals }

func (b *fakeBus) Sender() string { return fakeSender }

func (b *fakeBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *fakeBus) emit(sig *dbus.Signal) { b.signals <- sig }

// waitCall blocks until the next recorded method call, failing the test if
// none arrives in time.
func (b *fakeBus) waitCall(t *testing.T, method string) fakeCall {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case call := <-b.callCh:
			if call.Method == method {
				return call
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s call", method)
		}
	}
}

func (b *fakeBus) callCount(method string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

func (b *fakeBus) subscriberCount(path dbus.ObjectPath, iface, member string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.subs[string(path)+" "+iface+"."+member]
}

// responseSignal builds a portal Request.Response signal for tests.
func responseSignal(path dbus.ObjectPath, code uint32, results map[string]dbus.Variant) *dbus.Signal {
	return &dbus.Signal{
		Path: path,
		Name: requestInterface + "." + memberResponse,
		Body: []interface{}{code, results},
	}
}

// shortcutSignal builds an Activated/Deactivated signal for tests.
func shortcutSignal(member string, session dbus.ObjectPath, id string) *dbus.Signal {
	return &dbus.Signal{
		Path: portalObjectPath,
		Name: shortcutsInterface + "." + member,
		Body: []interface{}{session, id, uint64(0), map[string]dbus.Variant{}},
	}
}
