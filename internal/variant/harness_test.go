package variant

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/huddle/pkg/activity"
)

var (
	alice = activity.Actor{ID: "alice", Name: "Alice"}
	bob   = activity.Actor{ID: "bob", Name: "Bob"}
	carol = activity.Actor{ID: "carol", Name: "Carol"}
	admin = activity.Actor{ID: "root", Name: "Root", Role: activity.RoleAdmin}
)

// harness drives one handler the way the dispatcher does: every action is
// applied to the last committed payload, and only successes are committed.
type harness struct {
	t       *testing.T
	handler Handler
	session *activity.Session
	payload json.RawMessage
	limits  Limits
	seq     int
}

// newHarness creates a session of type kind owned by alice.
func newHarness(t *testing.T, kind activity.Type, setup interface{}) *harness {
	t.Helper()
	h, err := Builtin().Resolve(kind)
	require.NoError(t, err)

	hs := &harness{
		t:       t,
		handler: h,
		limits:  DefaultLimits(),
		session: &activity.Session{
			ID:        uuid.New().String(),
			Type:      kind,
			CreatedBy: alice.ID,
			Version:   1,
		},
	}
	payload, err := h.Create(hs.call(alice), hs.raw(setup))
	require.NoError(t, err)
	hs.payload = payload
	return hs
}

func (h *harness) call(actor activity.Actor) *Call {
	c := NewCall(h.session, actor, testNow)
	c.Limits = h.limits
	c.NewIDFunc = func() string {
		h.seq++
		return fmt.Sprintf("id-%d", h.seq)
	}
	return c
}

func (h *harness) raw(v interface{}) json.RawMessage {
	if v == nil {
		return nil
	}
	if s, ok := v.(string); ok {
		return json.RawMessage(s)
	}
	data, err := json.Marshal(v)
	require.NoError(h.t, err)
	return data
}

// do applies an action and commits the result on success.
func (h *harness) do(actor activity.Actor, action string, input interface{}) error {
	next, err := h.handler.Apply(h.call(actor), h.payload, action, h.raw(input))
	if err != nil {
		return err
	}
	h.payload = next
	return nil
}

// must applies an action that is expected to succeed.
func (h *harness) must(actor activity.Actor, action string, input interface{}) {
	h.t.Helper()
	require.NoError(h.t, h.do(actor, action, input), "%s by %s", action, actor.ID)
}

func (h *harness) decode(v interface{}) {
	h.t.Helper()
	require.NoError(h.t, json.Unmarshal(h.payload, v))
}

type m = map[string]interface{}

var testNow = time.UnixMilli(1700000000000)
