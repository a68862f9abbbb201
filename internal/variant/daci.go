package variant

import (
	"github.com/dyluth/huddle/internal/authz"
	"github.com/dyluth/huddle/pkg/activity"
)

// DACI statuses. draft -> pending -> approved | rejected.
const (
	DACIDraft    = "draft"
	DACIPending  = "pending"
	DACIApproved = "approved"
	DACIRejected = "rejected"
)

// DACI roles.
const (
	RoleDriver      = "driver"
	RoleApprover    = "approver"
	RoleContributor = "contributor"
	RoleInformed    = "informed"
)

// DACI is a decision record with explicit decision rights.
type DACI struct {
	Title       string           `json:"title"`
	Details     string           `json:"details,omitempty"`
	Status      string           `json:"status"`
	Roles       []RoleAssignment `json:"roles"`
	DecidedBy   string           `json:"decided_by,omitempty"`
	DecidedAtMs int64            `json:"decided_at_ms,omitempty"`
	Note        string           `json:"note,omitempty"`
}

// RoleAssignment gives one actor one role. The entry author is whoever
// made the assignment.
type RoleAssignment struct {
	Entry
	ActorID   string `json:"actor_id"`
	ActorName string `json:"actor_name"`
	Role      string `json:"role"`
}

// RoleOf returns the role held by an actor, or "".
func (p *DACI) RoleOf(actorID string) string {
	for _, r := range p.Roles {
		if r.ActorID == actorID {
			return r.Role
		}
	}
	return ""
}

func (p *DACI) count(role string) int {
	n := 0
	for _, r := range p.Roles {
		if r.Role == role {
			n++
		}
	}
	return n
}

func (p *DACI) inDraft() error {
	if p.Status != DACIDraft {
		return &activity.Error{Code: activity.CodeInvalidInput, Field: "status", Reason: "only allowed while the decision is a draft, it is " + p.Status}
	}
	return nil
}

type daciSetup struct {
	Title   string `json:"title"`
	Details string `json:"details,omitempty"`
}

type daciDetails struct {
	Title   *string `json:"title,omitempty"`
	Details *string `json:"details,omitempty"`
}

type assignRoleInput struct {
	ActorID   string `json:"actor_id"`
	ActorName string `json:"actor_name,omitempty"`
	Role      string `json:"role"`
}

func (in assignRoleInput) Validate() error {
	if in.ActorID == "" {
		return activity.InvalidField("actor_id", "is required")
	}
	return oneOf("role", in.Role, RoleDriver, RoleApprover, RoleContributor, RoleInformed)
}

type unassignRoleInput struct {
	ActorID string `json:"actor_id"`
}

type verdictInput struct {
	Note string `json:"note,omitempty"`
}

func daciSpec() *Spec[DACI] {
	setup := Do("setup", authz.Open, func(p *DACI, c *Call, in daciSetup) error {
		title, err := c.Text("title", in.Title, true)
		if err != nil {
			return err
		}
		details, err := c.Text("details", in.Details, false)
		if err != nil {
			return err
		}
		p.Title, p.Details, p.Status, p.Roles = title, details, DACIDraft, []RoleAssignment{}
		return nil
	})

	setDetails := Do("set_details", authz.CreatorOnly, func(p *DACI, c *Call, in daciDetails) error {
		if err := p.inDraft(); err != nil {
			return err
		}
		if in.Title != nil {
			title, err := c.Text("title", *in.Title, true)
			if err != nil {
				return err
			}
			p.Title = title
		}
		if in.Details != nil {
			details, err := c.Text("details", *in.Details, false)
			if err != nil {
				return err
			}
			p.Details = details
		}
		return nil
	})

	assign := Do("assign_role", authz.CreatorOnly, func(p *DACI, c *Call, in assignRoleInput) error {
		if err := p.inDraft(); err != nil {
			return err
		}
		if held := p.RoleOf(in.ActorID); held != "" {
			return activity.InvalidField("actor_id", "%s already holds the %s role", in.ActorID, held)
		}
		if in.Role == RoleDriver && p.count(RoleDriver) > 0 {
			return activity.LimitExceeded("a decision has one driver")
		}
		name, err := c.Text("actor_name", in.ActorName, false)
		if err != nil {
			return err
		}
		if name == "" {
			name = in.ActorID
		}
		entry, _, err := newEntry(c, p.Roles, "roles", "")
		if err != nil {
			return err
		}
		p.Roles = append(p.Roles, RoleAssignment{Entry: entry, ActorID: in.ActorID, ActorName: name, Role: in.Role})
		return nil
	})

	unassign := Do("unassign_role", authz.CreatorOnly, func(p *DACI, c *Call, in unassignRoleInput) error {
		if err := p.inDraft(); err != nil {
			return err
		}
		for i, r := range p.Roles {
			if r.ActorID == in.ActorID {
				p.Roles = removeAt(p.Roles, i)
				return nil
			}
		}
		return activity.InvalidField("actor_id", "%s holds no role", in.ActorID)
	})

	request := Do("request_approval", authz.CreatorOnly, func(p *DACI, c *Call, _ struct{}) error {
		if err := p.inDraft(); err != nil {
			return err
		}
		if p.count(RoleApprover) == 0 {
			return activity.InvalidField("roles", "assign at least one approver before requesting approval")
		}
		p.Status = DACIPending
		return nil
	})

	approverInPending := func(p *DACI, c *Call) (bool, bool) {
		return p.RoleOf(c.Actor.ID) == RoleApprover, p.Status == DACIPending
	}

	verdict := func(name, status string) Action[DACI] {
		return Do(name, authz.RoleGated, func(p *DACI, c *Call, in verdictInput) error {
			note, err := c.Text("note", in.Note, false)
			if err != nil {
				return err
			}
			p.Status = status
			p.DecidedBy = c.Actor.ID
			p.DecidedAtMs = c.NowMs()
			p.Note = note
			return nil
		}).ForRole(RoleApprover, approverInPending)
	}

	return Define(activity.TypeDACI,
		setDetails, assign, unassign, request,
		verdict("approve", DACIApproved),
		verdict("reject", DACIRejected),
	).WithSetup(setup)
}
