package portal

import (
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"

	"github.com/bnema/keyportal/internal/logger"
)

// Portal response codes carried in the first Response argument.
const (
	responseSuccess   uint32 = 0
	responseCancelled uint32 = 1
	responseEnded     uint32 = 2

	// responseInvalid flags a Response whose body could not be decoded.
	responseInvalid uint32 = ^uint32(0)
)

// replyFunc receives the outcome of one request: the portal response code
// (0 means success) and the result vardict.
type replyFunc func(code uint32, results map[string]dbus.Variant)

// newToken returns a fresh handle token. Tokens must never repeat within the
// process lifetime; a UUID leaves no room for accidental reuse.
func newToken() string {
	return "keyportal_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// correlator matches asynchronous portal replies to the request that caused
// them. Every outgoing request carries a fresh handle token and the portal
// delivers the reply as a Response signal on an object path derived from the
// caller's unique name and that token. Each registration fires at most once
// and is removed on delivery.
type correlator struct {
	bus     Bus
	pending map[dbus.ObjectPath]replyFunc
}

func newCorrelator(bus Bus) *correlator {
	return &correlator{
		bus:     bus,
		pending: make(map[dbus.ObjectPath]replyFunc),
	}
}

// requestPath precomputes the object path the Response for a token will
// arrive on, so the signal match is in place before the method call that
// could race it.
func (c *correlator) requestPath(token string) dbus.ObjectPath {
	return dbus.ObjectPath(fmt.Sprintf("%s/request/%s/%s", portalObjectPath, c.bus.Sender(), token))
}

// expect registers a one-shot handler for the reply addressed by token and
// returns the predicted request path.
func (c *correlator) expect(token string, onReply replyFunc) (dbus.ObjectPath, error) {
	path := c.requestPath(token)
	if err := c.bus.Subscribe(path, requestInterface, memberResponse); err != nil {
		return "", fmt.Errorf("subscribe request response: %w", err)
	}
	c.pending[path] = onReply
	return path, nil
}

// rekey moves a pending registration when the method return carried a
// different request path than the token predicted, which older portal
// backends still do.
func (c *correlator) rekey(predicted, actual dbus.ObjectPath) {
	if predicted == actual {
		return
	}
	onReply, ok := c.pending[predicted]
	if !ok {
		return
	}
	delete(c.pending, predicted)
	_ = c.bus.Unsubscribe(predicted, requestInterface, memberResponse)

	if err := c.bus.Subscribe(actual, requestInterface, memberResponse); err != nil {
		logger.Errorf("resubscribe on %s failed, reply will be lost: %v", actual, err)
		return
	}
	c.pending[actual] = onReply
}

// forget drops a registration whose request never went out.
func (c *correlator) forget(path dbus.ObjectPath) {
	if _, ok := c.pending[path]; !ok {
		return
	}
	delete(c.pending, path)
	_ = c.bus.Unsubscribe(path, requestInterface, memberResponse)
}

// dispatch routes a Response signal to its pending handler. It reports
// whether the signal was consumed as a correlated reply.
func (c *correlator) dispatch(sig *dbus.Signal) bool {
	if sig.Name != requestInterface+"."+memberResponse {
		return false
	}
	onReply, ok := c.pending[sig.Path]
	if !ok {
		return false
	}
	delete(c.pending, sig.Path)
	_ = c.bus.Unsubscribe(sig.Path, requestInterface, memberResponse)

	onReply(parseResponse(sig.Body))
	return true
}

// drain discards every in-flight registration. Requests the portal never
// answered die with the owning component instead of leaking.
func (c *correlator) drain() {
	for path := range c.pending {
		delete(c.pending, path)
		_ = c.bus.Unsubscribe(path, requestInterface, memberResponse)
	}
}

func parseResponse(body []interface{}) (uint32, map[string]dbus.Variant) {
	if len(body) < 2 {
		return responseInvalid, nil
	}
	code, ok := body[0].(uint32)
	if !ok {
		return responseInvalid, nil
	}
	results, ok := body[1].(map[string]dbus.Variant)
	if !ok {
		return code, map[string]dbus.Variant{}
	}
	return code, results
}
