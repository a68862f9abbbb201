// Package variant holds the activity catalog: one typed payload record and
// one action table per activity type, plus the registry the dispatcher
// resolves them from.
//
// Every action runs against a freshly decoded copy of the payload, so a
// rejected action never leaves partial state behind. Apply order is fixed:
// decode input, authorize, validate input, mutate, encode.
package variant

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/dyluth/huddle/internal/authz"
	"github.com/dyluth/huddle/pkg/activity"
)

// CloseAction is the action name every variant accepts for closing.
const CloseAction = "close"

// Validator is implemented by inputs with static checks (enums, ranges).
type Validator interface {
	Validate() error
}

// Targeted is implemented by inputs addressing an existing entry. The
// returned id is used for owner-or-admin checks.
type Targeted interface {
	Target() string
}

// Handler is the type-erased view of a variant the dispatcher works with.
type Handler interface {
	Type() activity.Type
	Actions() []string
	Supports(action string) bool
	Closes(action string) bool
	Create(c *Call, setup json.RawMessage) (json.RawMessage, error)
	Apply(c *Call, payload json.RawMessage, action string, input json.RawMessage) (json.RawMessage, error)
}

// Action is one named mutation of payload P.
type Action[P any] struct {
	name   string
	rule   authz.Rule
	closes bool

	role      string
	roleCheck func(p *P, c *Call) (holds, inPhase bool)
	owner     func(p *P, id string) (string, bool)
	assignee  func(p *P, id string) string

	decode func(raw json.RawMessage) (any, error)
	apply  func(p *P, c *Call, in any) error
}

// Do builds an action whose input is decoded from JSON into I.
func Do[P, I any](name string, rule authz.Rule, fn func(p *P, c *Call, in I) error) Action[P] {
	return Action[P]{
		name: name,
		rule: rule,
		decode: func(raw json.RawMessage) (any, error) {
			var in I
			if isEmpty(raw) {
				return in, nil
			}
			dec := json.NewDecoder(bytes.NewReader(raw))
			dec.DisallowUnknownFields()
			if err := dec.Decode(&in); err != nil {
				return nil, activity.InvalidField("input", "malformed input: %v", err)
			}
			return in, nil
		},
		apply: func(p *P, c *Call, in any) error {
			return fn(p, c, in.(I))
		},
	}
}

// Closing marks the action as performing the close transition.
func (a Action[P]) Closing() Action[P] {
	a.closes = true
	return a
}

// OwnedBy sets how an owner-or-admin action resolves the author of the
// entry its input targets.
func (a Action[P]) OwnedBy(lookup func(p *P, id string) (string, bool)) Action[P] {
	a.owner = lookup
	return a
}

// SharedWith lets an owner-or-admin action also admit whoever lookup
// reports as assigned to the targeted entry.
func (a Action[P]) SharedWith(lookup func(p *P, id string) string) Action[P] {
	a.assignee = lookup
	return a
}

// ForRole makes the action role-gated on a payload role.
func (a Action[P]) ForRole(role string, check func(p *P, c *Call) (holds, inPhase bool)) Action[P] {
	a.rule = authz.RoleGated
	a.role = role
	a.roleCheck = check
	return a
}

// Name returns the action name.
func (a Action[P]) Name() string { return a.name }

// Spec is the declaration of one variant over payload record P.
type Spec[P any] struct {
	kind    activity.Type
	setup   *Action[P]
	actions map[string]Action[P]
	cleanup func(p *P, c *Call)
}

// Define declares a variant. An implicit creator-only close action is
// always added.
func Define[P any](kind activity.Type, actions ...Action[P]) *Spec[P] {
	s := &Spec[P]{
		kind:    kind,
		actions: make(map[string]Action[P], len(actions)+1),
	}
	s.actions[CloseAction] = Do(CloseAction, authz.CreatorOnly, func(*P, *Call, struct{}) error { return nil }).Closing()
	for _, a := range actions {
		if _, dup := s.actions[a.name]; dup && a.name != CloseAction {
			panic(fmt.Sprintf("variant %s declares action %q twice", kind, a.name))
		}
		s.actions[a.name] = a
	}
	return s
}

// WithSetup sets the action applied to the empty payload at creation.
func (s *Spec[P]) WithSetup(a Action[P]) *Spec[P] {
	s.setup = &a
	return s
}

// WithCleanup sets a hook run on the payload when the session closes.
func (s *Spec[P]) WithCleanup(fn func(p *P, c *Call)) *Spec[P] {
	s.cleanup = fn
	return s
}

// Type returns the variant tag.
func (s *Spec[P]) Type() activity.Type { return s.kind }

// Actions lists the supported action names, sorted.
func (s *Spec[P]) Actions() []string {
	names := make([]string, 0, len(s.actions))
	for name := range s.actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Supports reports whether the variant declares the action.
func (s *Spec[P]) Supports(action string) bool {
	_, ok := s.actions[action]
	return ok
}

// Closes reports whether the action performs the close transition.
func (s *Spec[P]) Closes(action string) bool {
	a, ok := s.actions[action]
	return ok && a.closes
}

// Create builds the initial payload from the setup input.
func (s *Spec[P]) Create(c *Call, setup json.RawMessage) (json.RawMessage, error) {
	p := new(P)
	if s.setup != nil {
		in, err := s.setup.decode(setup)
		if err != nil {
			return nil, err
		}
		if err := validate(in); err != nil {
			return nil, err
		}
		if err := s.setup.apply(p, c, in); err != nil {
			return nil, err
		}
	} else if !isEmpty(setup) && !bytes.Equal(bytes.TrimSpace(setup), []byte("{}")) {
		return nil, activity.InvalidField("setup", "%s takes no setup", s.kind)
	}
	return encode(p)
}

// Apply runs one action against an encoded payload and returns the new
// encoding. The input payload is never modified.
func (s *Spec[P]) Apply(c *Call, payload json.RawMessage, name string, raw json.RawMessage) (json.RawMessage, error) {
	a, ok := s.actions[name]
	if !ok {
		return nil, activity.Errorf(activity.CodeUnsupportedAction, "%s does not support action %q", s.kind, name)
	}

	p := new(P)
	if !isEmpty(payload) {
		if err := json.Unmarshal(payload, p); err != nil {
			return nil, fmt.Errorf("failed to decode %s payload: %w", s.kind, err)
		}
	}

	in, err := a.decode(raw)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(a, p, c, in); err != nil {
		return nil, err
	}

	if err := validate(in); err != nil {
		return nil, err
	}

	if err := a.apply(p, c, in); err != nil {
		return nil, err
	}

	if a.closes && s.cleanup != nil {
		s.cleanup(p, c)
	}

	return encode(p)
}

func (s *Spec[P]) authorize(a Action[P], p *P, c *Call, in any) error {
	req := authz.Request{
		Rule:      a.rule,
		Actor:     c.Actor,
		CreatedBy: c.Session.CreatedBy,
		Role:      a.role,
	}

	switch a.rule {
	case authz.OwnerOrAdmin:
		t, ok := in.(Targeted)
		if !ok || a.owner == nil {
			return fmt.Errorf("action %s.%s is owner-gated without a target", s.kind, a.name)
		}
		id := t.Target()
		if id == "" {
			return activity.InvalidField("id", "entry id is required")
		}
		owner, found := a.owner(p, id)
		if !found {
			return activity.InvalidField("id", "no entry with id %q", id)
		}
		req.OwnerID = owner
		if a.assignee != nil {
			req.AssigneeID = a.assignee(p, id)
		}
	case authz.RoleGated:
		req.HoldsRole, req.InPhase = a.roleCheck(p, c)
	}

	return authz.Evaluate(req).Err(a.name)
}

func isEmpty(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func validate(in any) error {
	v, ok := in.(Validator)
	if !ok {
		return nil
	}
	if err := v.Validate(); err != nil {
		if _, coded := activity.AsError(err); coded {
			return err
		}
		return activity.Errorf(activity.CodeInvalidInput, "%v", err)
	}
	return nil
}

func encode[P any](p *P) (json.RawMessage, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	return data, nil
}
