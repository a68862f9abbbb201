// Package authz decides whether an actor may perform an activity action.
// Evaluation is pure: callers collect the facts (creator, entry owner,
// role held, phase) and the evaluator turns them into a decision.
package authz

import (
	"fmt"

	"github.com/dyluth/huddle/pkg/activity"
)

// Rule is the authorization family an action declares.
type Rule int

const (
	// Open lets any authenticated participant act.
	Open Rule = iota

	// CreatorOnly is limited to the session creator or a platform admin.
	CreatorOnly

	// OwnerOrAdmin is limited to the author of the targeted entry or a
	// platform admin.
	OwnerOrAdmin

	// RoleGated is limited to actors holding a role inside the payload,
	// and only while the session is in the matching phase. Admins get no
	// override.
	RoleGated
)

// String returns the rule name used in logs.
func (r Rule) String() string {
	switch r {
	case Open:
		return "open"
	case CreatorOnly:
		return "creator-only"
	case OwnerOrAdmin:
		return "owner-or-admin"
	case RoleGated:
		return "role-gated"
	default:
		return "unknown"
	}
}

// Decision is the outcome of an authorization check.
type Decision int

const (
	// Deny means the action is not permitted.
	Deny Decision = iota

	// Allow means the action is permitted.
	Allow
)

// String returns "allow" or "deny".
func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

// DenyReason describes why a check was denied.
type DenyReason int

const (
	ReasonAnonymous DenyReason = iota
	ReasonNotCreator
	ReasonNotOwner
	ReasonMissingRole
	ReasonWrongPhase
	ReasonUnknownRule
)

// String returns a human-readable reason.
func (r DenyReason) String() string {
	switch r {
	case ReasonAnonymous:
		return "actor is not authenticated"
	case ReasonNotCreator:
		return "only the session creator or an admin may do this"
	case ReasonNotOwner:
		return "only the entry author or an admin may do this"
	case ReasonMissingRole:
		return "actor does not hold the required role"
	case ReasonWrongPhase:
		return "action is not allowed in the current phase"
	case ReasonUnknownRule:
		return "unknown authorization rule"
	default:
		return "unknown"
	}
}

// Request carries the facts a rule is evaluated against.
type Request struct {
	Rule  Rule
	Actor activity.Actor

	// CreatedBy is the session creator, used by CreatorOnly.
	CreatedBy string

	// OwnerID is the author of the targeted entry, used by OwnerOrAdmin.
	OwnerID string

	// AssigneeID, when set, may act on the entry alongside its owner.
	AssigneeID string

	// Role names the payload role a RoleGated action requires.
	Role string

	// HoldsRole and InPhase are resolved from the payload by the variant.
	HoldsRole bool
	InPhase   bool
}

// Result describes the outcome of an evaluation. Reason is only
// meaningful when Decision is Deny.
type Result struct {
	Decision Decision
	Reason   DenyReason
}

// Allowed reports whether the decision is Allow.
func (r Result) Allowed() bool {
	return r.Decision == Allow
}

// Err converts a denial into a Forbidden domain error naming the action.
// Returns nil when allowed.
func (r Result) Err(action string) error {
	if r.Allowed() {
		return nil
	}
	return activity.Forbidden("%s: %s", action, r.Reason)
}

func allow() Result { return Result{Decision: Allow} }

func deny(reason DenyReason) Result { return Result{Decision: Deny, Reason: reason} }

// Evaluate applies the request's rule.
func Evaluate(req Request) Result {
	if req.Actor.ID == "" {
		return deny(ReasonAnonymous)
	}

	switch req.Rule {
	case Open:
		return allow()

	case CreatorOnly:
		if req.Actor.ID == req.CreatedBy || req.Actor.IsAdmin() {
			return allow()
		}
		return deny(ReasonNotCreator)

	case OwnerOrAdmin:
		if (req.OwnerID != "" && req.Actor.ID == req.OwnerID) || req.Actor.IsAdmin() {
			return allow()
		}
		if req.AssigneeID != "" && req.Actor.ID == req.AssigneeID {
			return allow()
		}
		return deny(ReasonNotOwner)

	case RoleGated:
		if !req.HoldsRole {
			return deny(ReasonMissingRole)
		}
		if !req.InPhase {
			return deny(ReasonWrongPhase)
		}
		return allow()

	default:
		return deny(ReasonUnknownRule)
	}
}

// Describe renders a request for log lines.
func Describe(req Request) string {
	if req.Rule == RoleGated {
		return fmt.Sprintf("%s(%s) actor=%s", req.Rule, req.Role, req.Actor.ID)
	}
	return fmt.Sprintf("%s actor=%s", req.Rule, req.Actor.ID)
}
