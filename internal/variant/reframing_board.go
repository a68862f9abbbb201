package variant

import (
	"github.com/dyluth/huddle/internal/authz"
	"github.com/dyluth/huddle/pkg/activity"
)

// ReframingLenses are the angles a problem can be restated from.
var ReframingLenses = []string{"opposite", "stakeholder", "scale", "time", "constraint", "analogy"}

// ReframingBoard restates a problem through different lenses and selects
// the most useful framing.
type ReframingBoard struct {
	Problem    string    `json:"problem"`
	Reframes   []Reframe `json:"reframes"`
	SelectedID string    `json:"selected_id,omitempty"`
}

// Reframe is one restatement.
type Reframe struct {
	Entry
	Lens     string   `json:"lens"`
	Text     string   `json:"text"`
	VoterIDs []string `json:"voter_ids"`
}

type reframingSetup struct {
	Problem string `json:"problem"`
}

type addReframeInput struct {
	ID   string `json:"id,omitempty"`
	Lens string `json:"lens"`
	Text string `json:"text"`
}

func (in addReframeInput) Validate() error {
	return oneOf("lens", in.Lens, ReframingLenses...)
}

func reframingBoardSpec() *Spec[ReframingBoard] {
	setup := Do("setup", authz.Open, func(p *ReframingBoard, c *Call, in reframingSetup) error {
		problem, err := c.Text("problem", in.Problem, true)
		if err != nil {
			return err
		}
		p.Problem, p.Reframes = problem, []Reframe{}
		return nil
	})

	add := Do("add_reframe", authz.Open, func(p *ReframingBoard, c *Call, in addReframeInput) error {
		text, err := c.Text("text", in.Text, true)
		if err != nil {
			return err
		}
		entry, replay, err := newEntry(c, p.Reframes, "reframes", in.ID)
		if err != nil || replay {
			return err
		}
		p.Reframes = append(p.Reframes, Reframe{Entry: entry, Lens: in.Lens, Text: text, VoterIDs: []string{}})
		return nil
	})

	vote := Do("vote", authz.Open, func(p *ReframingBoard, c *Call, in idInput) error {
		i, err := mustFind(p.Reframes, "id", in.ID)
		if err != nil {
			return err
		}
		p.Reframes[i].VoterIDs, _ = toggle(p.Reframes[i].VoterIDs, c.Actor.ID)
		return nil
	})

	del := Do("delete_reframe", authz.OwnerOrAdmin, func(p *ReframingBoard, c *Call, in idInput) error {
		p.Reframes = removeAt(p.Reframes, indexOf(p.Reframes, in.ID))
		if p.SelectedID == in.ID {
			p.SelectedID = ""
		}
		return nil
	}).OwnedBy(func(p *ReframingBoard, id string) (string, bool) { return authorOf(p.Reframes, id) })

	selectReframe := Do("select", authz.CreatorOnly, func(p *ReframingBoard, c *Call, in idInput) error {
		if _, err := mustFind(p.Reframes, "id", in.ID); err != nil {
			return err
		}
		p.SelectedID = in.ID
		return nil
	})

	return Define(activity.TypeReframingBoard, add, vote, del, selectReframe).WithSetup(setup)
}
