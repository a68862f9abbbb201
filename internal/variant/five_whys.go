package variant

import (
	"github.com/dyluth/huddle/internal/authz"
	"github.com/dyluth/huddle/pkg/activity"
)

const fiveWhysMax = 5

// FiveWhys drills from a problem statement to a root cause.
type FiveWhys struct {
	Problem     string `json:"problem"`
	Whys        []Why  `json:"whys"`
	RootCause   string `json:"root_cause,omitempty"`
	RootCauseBy string `json:"root_cause_by,omitempty"`
}

// Why is one answer; Level is its 1-based position in the chain.
type Why struct {
	Entry
	Level int    `json:"level"`
	Text  string `json:"text"`
}

func (p *FiveWhys) renumber() {
	for i := range p.Whys {
		p.Whys[i].Level = i + 1
	}
}

type fiveWhysSetup struct {
	Problem string `json:"problem"`
}

type rootCauseInput struct {
	Text string `json:"text"`
}

func fiveWhysSpec() *Spec[FiveWhys] {
	owner := func(p *FiveWhys, id string) (string, bool) { return authorOf(p.Whys, id) }

	setup := Do("setup", authz.Open, func(p *FiveWhys, c *Call, in fiveWhysSetup) error {
		problem, err := c.Text("problem", in.Problem, true)
		if err != nil {
			return err
		}
		p.Problem = problem
		p.Whys = []Why{}
		return nil
	})

	add := Do("add_why", authz.Open, func(p *FiveWhys, c *Call, in addTextInput) error {
		if in.ID != "" && indexOf(p.Whys, in.ID) >= 0 {
			_, _, err := newEntry(c, p.Whys, "whys", in.ID)
			return err
		}
		text, err := c.Text("text", in.Text, true)
		if err != nil {
			return err
		}
		if len(p.Whys) >= fiveWhysMax {
			return activity.LimitExceeded("at most %d whys", fiveWhysMax)
		}
		entry, _, err := newEntry(c, p.Whys, "whys", in.ID)
		if err != nil {
			return err
		}
		p.Whys = append(p.Whys, Why{Entry: entry, Level: len(p.Whys) + 1, Text: text})
		return nil
	})

	edit := Do("edit_why", authz.OwnerOrAdmin, func(p *FiveWhys, c *Call, in editTextInput) error {
		text, err := c.Text("text", in.Text, true)
		if err != nil {
			return err
		}
		p.Whys[indexOf(p.Whys, in.ID)].Text = text
		return nil
	}).OwnedBy(owner)

	del := Do("delete_why", authz.OwnerOrAdmin, func(p *FiveWhys, c *Call, in idInput) error {
		p.Whys = removeAt(p.Whys, indexOf(p.Whys, in.ID))
		p.renumber()
		return nil
	}).OwnedBy(owner)

	rootCause := Do("set_root_cause", authz.CreatorOnly, func(p *FiveWhys, c *Call, in rootCauseInput) error {
		text, err := c.Text("text", in.Text, true)
		if err != nil {
			return err
		}
		p.RootCause = text
		p.RootCauseBy = c.Actor.ID
		return nil
	})

	return Define(activity.TypeFiveWhys, add, edit, del, rootCause).WithSetup(setup)
}
