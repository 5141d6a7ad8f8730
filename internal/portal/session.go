package portal

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/godbus/dbus/v5"

	"github.com/bnema/keyportal/internal/logger"
	"github.com/bnema/keyportal/internal/shortcuts"
)

// Action is one host-supplied shortcut candidate.
type Action struct {
	// ID is the stable identifier declared to the portal. It must satisfy
	// shortcuts.ValidID and must not be in the reserved synthetic namespace.
	ID string
	// Description is the label the desktop shows in its configuration UI.
	Description string
	// Trigger is invoked with true on activation and false on deactivation.
	Trigger func(pressed bool)
}

// sessionState tracks portal session establishment. There is no transition
// back out of awaitingCreateResponse on failure; the feature stays down for
// the rest of the process.
type sessionState int

const (
	stateUninitialized sessionState = iota
	stateAwaitingCreateResponse
	stateEstablished
)

// Options configures a Manager.
type Options struct {
	// ParentWindow is the portal window identifier the desktop may parent
	// its dialogs to. Empty is allowed.
	ParentWindow string
	// Synthetics are fixed shortcuts re-appended after every resync. Their
	// ids must start with "_" so they can never collide with derived ids.
	Synthetics []Action
}

// Manager owns the GlobalShortcuts portal session and keeps the desktop's
// view of this application's shortcuts synchronized with the local registry.
//
// All protocol work runs on a single event loop goroutine which also owns
// inbound signal dispatch; the exported methods marshal onto that loop.
// Before Initialize starts the loop they apply directly, which is safe
// because nothing else can be touching the manager yet.
type Manager struct {
	bus        Bus
	registry   *shortcuts.Registry
	correlator *correlator

	parentWindow string
	synthetics   []Action

	state   sessionState
	session dbus.ObjectPath

	ops     chan func()
	done    chan struct{}
	wg      sync.WaitGroup
	started atomic.Bool

	stopOnce        sync.Once
	establishedOnce sync.Once
	established     chan struct{}
}

// NewManager creates a manager speaking to the given bus. The synthetic
// shortcuts are registered immediately so the first bind after session
// establishment declares them even if no resync has happened yet.
func NewManager(bus Bus, opts Options) *Manager {
	m := &Manager{
		bus:          bus,
		registry:     shortcuts.NewRegistry(),
		correlator:   newCorrelator(bus),
		parentWindow: opts.ParentWindow,
		ops:          make(chan func(), 16),
		done:         make(chan struct{}),
		established:  make(chan struct{}),
	}

	for _, s := range opts.Synthetics {
		if !shortcuts.ValidID(s.ID) || !shortcuts.Reserved(s.ID) {
			logger.Warnf("dropping synthetic shortcut with invalid id %q", s.ID)
			continue
		}
		m.synthetics = append(m.synthetics, s)
	}
	m.insertSynthetics()
	return m
}

// Initialize starts the event loop and issues the session creation request.
// An error here is fatal for the feature: no retry happens and the manager
// stays non-functional until the process restarts.
func (m *Manager) Initialize() error {
	if m.started.Swap(true) {
		return fmt.Errorf("portal manager already initialized")
	}

	m.wg.Add(1)
	go m.run()

	errCh := make(chan error, 1)
	m.ops <- func() { errCh <- m.createSession() }
	return <-errCh
}

// Resync replaces the registry contents with the given actions plus the
// fixed synthetic set, then re-declares the whole set to the desktop.
// Callable at any time and any number of times; before the session is
// established it only rebuilds the registry, and the establishment handler
// issues the first bind with whatever the registry holds by then.
func (m *Manager) Resync(actions []Action) {
	m.post(func() { m.resync(actions) })
}

// Configure asks the desktop to open its own shortcut-customization UI for
// this session.
func (m *Manager) Configure() {
	m.post(m.configure)
}

// Version reads the portal's GlobalShortcuts protocol version. It needs no
// session and works before Initialize.
func (m *Manager) Version() (uint32, error) {
	variant, err := m.bus.Property("version")
	if err != nil {
		return 0, err
	}
	v, ok := variant.Value().(uint32)
	if !ok {
		return 0, fmt.Errorf("portal version has unexpected type %T", variant.Value())
	}
	return v, nil
}

// Established is closed once the portal session is up and the first bind has
// been issued.
func (m *Manager) Established() <-chan struct{} {
	return m.established
}

// Shutdown stops the event loop and releases every signal subscription,
// including replies still in flight. The portal session itself needs no
// explicit teardown call; it dies with the bus connection.
func (m *Manager) Shutdown() {
	m.stopOnce.Do(func() { close(m.done) })
	if m.started.Load() {
		m.wg.Wait()
	}

	m.correlator.drain()
	if m.state == stateEstablished {
		_ = m.bus.Unsubscribe(portalObjectPath, shortcutsInterface, memberActivated)
		_ = m.bus.Unsubscribe(portalObjectPath, shortcutsInterface, memberDeactivated)
	}
	if err := m.bus.Close(); err != nil {
		logger.Debugf("closing bus: %v", err)
	}
}

// post marshals op onto the event loop, or runs it inline during the
// single-threaded setup phase before Initialize.
func (m *Manager) post(op func()) {
	if !m.started.Load() {
		op()
		return
	}
	select {
	case m.ops <- op:
	case <-m.done:
	}
}

func (m *Manager) run() {
	defer m.wg.Done()

	signals := m.bus.Signals()
	for {
		select {
		case <-m.done:
			return
		case op := <-m.ops:
			op()
		case sig, ok := <-signals:
			if !ok {
				return
			}
			m.handleSignal(sig)
		}
	}
}

func (m *Manager) handleSignal(sig *dbus.Signal) {
	if sig == nil {
		return
	}
	if m.correlator.dispatch(sig) {
		return
	}
	switch sig.Name {
	case shortcutsInterface + "." + memberActivated:
		m.routeActivation(sig, true)
	case shortcutsInterface + "." + memberDeactivated:
		m.routeActivation(sig, false)
	}
}

// routeActivation dispatches an Activated/Deactivated signal to the matching
// registry entry. Unknown ids are dropped without complaint: the desktop may
// still report shortcuts from a set we have since replaced.
func (m *Manager) routeActivation(sig *dbus.Signal, pressed bool) {
	if len(sig.Body) < 2 {
		return
	}
	session, ok := sig.Body[0].(dbus.ObjectPath)
	if !ok || session != m.session {
		return
	}
	id, ok := sig.Body[1].(string)
	if !ok {
		return
	}

	d, ok := m.registry.Lookup(id)
	if !ok {
		logger.Debugf("ignoring activation for unknown shortcut %q", id)
		return
	}
	if d.Trigger != nil {
		d.Trigger(pressed)
	}
}

func (m *Manager) createSession() error {
	if m.state != stateUninitialized {
		return fmt.Errorf("session already created")
	}

	handleToken := newToken()
	options := map[string]dbus.Variant{
		"handle_token":         dbus.MakeVariant(handleToken),
		"session_handle_token": dbus.MakeVariant(newToken()),
	}

	predicted, err := m.correlator.expect(handleToken, m.onCreateSessionResponse)
	if err != nil {
		return err
	}

	m.state = stateAwaitingCreateResponse
	request, err := m.bus.Call("CreateSession", options)
	if err != nil {
		m.correlator.forget(predicted)
		return fmt.Errorf("create session: %w", err)
	}
	m.correlator.rekey(predicted, request)

	logger.Debugf("awaiting session response on %s", request)
	return nil
}

func (m *Manager) onCreateSessionResponse(code uint32, results map[string]dbus.Variant) {
	if code != responseSuccess {
		logger.Errorf("portal refused the shortcuts session (response=%d); global shortcuts disabled", code)
		return
	}

	raw, ok := results["session_handle"]
	if !ok {
		logger.Warn("session response carried no session_handle; global shortcuts disabled")
		return
	}
	session, err := sessionPath(raw)
	if err != nil {
		logger.Warnf("session response malformed: %v", err)
		return
	}
	m.session = session

	// Activations are broadcast on the well-known portal path; every session
	// sees them and filters by its own handle.
	if err := m.bus.Subscribe(portalObjectPath, shortcutsInterface, memberActivated); err != nil {
		logger.Errorf("subscribe %s: %v", memberActivated, err)
	}
	if err := m.bus.Subscribe(portalObjectPath, shortcutsInterface, memberDeactivated); err != nil {
		logger.Errorf("subscribe %s: %v", memberDeactivated, err)
	}

	m.state = stateEstablished
	logger.Infof("portal session established: %s", session)

	m.bind()
	m.establishedOnce.Do(func() { close(m.established) })
}

func sessionPath(raw dbus.Variant) (dbus.ObjectPath, error) {
	switch value := raw.Value().(type) {
	case dbus.ObjectPath:
		if !value.IsValid() {
			return "", fmt.Errorf("session_handle is not a valid object path: %q", string(value))
		}
		return value, nil
	case string:
		path := dbus.ObjectPath(value)
		if !path.IsValid() {
			return "", fmt.Errorf("session_handle string is not a valid object path: %q", value)
		}
		return path, nil
	default:
		return "", fmt.Errorf("session_handle has unexpected type %T", raw.Value())
	}
}

func (m *Manager) resync(actions []Action) {
	m.registry.Clear()
	for _, a := range actions {
		if !shortcuts.ValidID(a.ID) || shortcuts.Reserved(a.ID) {
			logger.Warnf("skipping action with unusable id %q", a.ID)
			continue
		}
		m.registry.Insert(a.ID, a.Description, a.Trigger)
	}
	m.insertSynthetics()
	m.bind()
}

func (m *Manager) insertSynthetics() {
	for _, s := range m.synthetics {
		m.registry.Insert(s.ID, s.Description, s.Trigger)
	}
}

// boundShortcut marshals as the (sa{sv}) element BindShortcuts expects.
type boundShortcut struct {
	ID      string
	Details map[string]dbus.Variant
}

// bind declares the full current shortcut set to the desktop. Shortcuts
// missing from the list are dropped on the remote side, so replacing the
// whole set is the only synchronization primitive needed. A failed bind is
// recoverable: nothing is rolled back and the next resync retries.
func (m *Manager) bind() {
	if m.state != stateEstablished || m.session == "" {
		logger.Debug("bind deferred: session not established")
		return
	}

	snapshot := m.registry.Snapshot()
	list := make([]boundShortcut, 0, len(snapshot))
	for _, d := range snapshot {
		list = append(list, boundShortcut{
			ID: d.ID,
			Details: map[string]dbus.Variant{
				"description": dbus.MakeVariant(d.Description),
			},
		})
	}

	token := newToken()
	predicted, err := m.correlator.expect(token, m.onBindResponse)
	if err != nil {
		logger.Errorf("bind shortcuts: %v", err)
		return
	}

	options := map[string]dbus.Variant{
		"handle_token": dbus.MakeVariant(token),
	}
	request, err := m.bus.Call("BindShortcuts", m.session, list, m.parentWindow, options)
	if err != nil {
		m.correlator.forget(predicted)
		logger.Errorf("bind shortcuts: %v", err)
		return
	}
	m.correlator.rekey(predicted, request)

	logger.Infof("declared %d shortcuts to the portal", len(list))
}

func (m *Manager) onBindResponse(code uint32, results map[string]dbus.Variant) {
	if code != responseSuccess {
		logger.Errorf("portal rejected the shortcut binding (response=%d)", code)
		return
	}
	logger.Debug("shortcut binding acknowledged")
}

func (m *Manager) configure() {
	if m.state != stateEstablished {
		logger.Warn("configure ignored: session not established")
		return
	}

	token := newToken()
	predicted, err := m.correlator.expect(token, m.onConfigureResponse)
	if err != nil {
		logger.Errorf("configure shortcuts: %v", err)
		return
	}

	options := map[string]dbus.Variant{
		"handle_token": dbus.MakeVariant(token),
	}
	request, err := m.bus.Call("ConfigureShortcuts", m.session, m.parentWindow, options)
	if err != nil {
		m.correlator.forget(predicted)
		logger.Errorf("configure shortcuts: %v", err)
		return
	}
	m.correlator.rekey(predicted, request)
}

func (m *Manager) onConfigureResponse(code uint32, results map[string]dbus.Variant) {
	if code != responseSuccess {
		logger.Warnf("shortcut configuration dialog failed (response=%d)", code)
	}
}
