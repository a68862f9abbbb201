package variant

import (
	"time"

	"github.com/dyluth/huddle/internal/authz"
	"github.com/dyluth/huddle/pkg/activity"
)

const dueDateLayout = "2006-01-02"

// ActionItems tracks follow-ups coming out of a meeting.
type ActionItems struct {
	Items []ActionItem `json:"items"`
}

// ActionItem is one follow-up. DueDate is an RFC 3339 full-date.
type ActionItem struct {
	Entry
	Text          string `json:"text"`
	AssigneeID    string `json:"assignee_id,omitempty"`
	AssigneeName  string `json:"assignee_name,omitempty"`
	DueDate       string `json:"due_date,omitempty"`
	Done          bool   `json:"done"`
	CompletedBy   string `json:"completed_by,omitempty"`
	CompletedAtMs int64  `json:"completed_at_ms,omitempty"`
}

type addActionItemInput struct {
	ID           string `json:"id,omitempty"`
	Text         string `json:"text"`
	AssigneeID   string `json:"assignee_id,omitempty"`
	AssigneeName string `json:"assignee_name,omitempty"`
	DueDate      string `json:"due_date,omitempty"`
}

func (in addActionItemInput) Validate() error {
	return validDueDate(in.DueDate)
}

type assignInput struct {
	ID           string `json:"id"`
	AssigneeID   string `json:"assignee_id"`
	AssigneeName string `json:"assignee_name,omitempty"`
	DueDate      string `json:"due_date,omitempty"`
}

func (in assignInput) Target() string { return in.ID }

func (in assignInput) Validate() error {
	return validDueDate(in.DueDate)
}

func validDueDate(s string) error {
	if s == "" {
		return nil
	}
	if _, err := time.Parse(dueDateLayout, s); err != nil {
		return activity.InvalidField("due_date", "must be a date like 2024-05-31")
	}
	return nil
}

func actionItemsSpec() *Spec[ActionItems] {
	owner := func(p *ActionItems, id string) (string, bool) { return authorOf(p.Items, id) }
	assignee := func(p *ActionItems, id string) string {
		if i := indexOf(p.Items, id); i >= 0 {
			return p.Items[i].AssigneeID
		}
		return ""
	}

	add := Do("add_item", authz.Open, func(p *ActionItems, c *Call, in addActionItemInput) error {
		text, err := c.Text("text", in.Text, true)
		if err != nil {
			return err
		}
		name, err := c.Text("assignee_name", in.AssigneeName, false)
		if err != nil {
			return err
		}
		entry, replay, err := newEntry(c, p.Items, "items", in.ID)
		if err != nil || replay {
			return err
		}
		p.Items = append(p.Items, ActionItem{Entry: entry, Text: text, AssigneeID: in.AssigneeID, AssigneeName: name, DueDate: in.DueDate})
		return nil
	})

	assign := Do("assign", authz.OwnerOrAdmin, func(p *ActionItems, c *Call, in assignInput) error {
		name, err := c.Text("assignee_name", in.AssigneeName, false)
		if err != nil {
			return err
		}
		item := &p.Items[indexOf(p.Items, in.ID)]
		item.AssigneeID = in.AssigneeID
		item.AssigneeName = name
		if in.DueDate != "" {
			item.DueDate = in.DueDate
		}
		return nil
	}).OwnedBy(owner)

	complete := Do("complete", authz.OwnerOrAdmin, func(p *ActionItems, c *Call, in idInput) error {
		item := &p.Items[indexOf(p.Items, in.ID)]
		if item.Done {
			return activity.InvalidField("id", "item is already complete")
		}
		item.Done = true
		item.CompletedBy = c.Actor.ID
		item.CompletedAtMs = c.NowMs()
		return nil
	}).OwnedBy(owner).SharedWith(assignee)

	reopen := Do("reopen_item", authz.OwnerOrAdmin, func(p *ActionItems, c *Call, in idInput) error {
		item := &p.Items[indexOf(p.Items, in.ID)]
		if !item.Done {
			return activity.InvalidField("id", "item is not complete")
		}
		item.Done = false
		item.CompletedBy = ""
		item.CompletedAtMs = 0
		return nil
	}).OwnedBy(owner).SharedWith(assignee)

	del := Do("delete_item", authz.OwnerOrAdmin, func(p *ActionItems, c *Call, in idInput) error {
		p.Items = removeAt(p.Items, indexOf(p.Items, in.ID))
		return nil
	}).OwnedBy(owner)

	return Define(activity.TypeActionItems, add, assign, complete, reopen, del)
}
