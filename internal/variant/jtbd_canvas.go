package variant

import (
	"github.com/dyluth/huddle/internal/authz"
	"github.com/dyluth/huddle/pkg/activity"
)

// JTBDSections are the areas of a jobs-to-be-done canvas.
var JTBDSections = []string{"situation", "motivation", "expected_outcome", "pains", "gains", "alternatives"}

// JTBDCanvas frames a job statement with cards around it.
type JTBDCanvas struct {
	Job   string     `json:"job,omitempty"`
	Cards []JTBDCard `json:"cards"`
}

// JTBDCard is one sticky note on the canvas.
type JTBDCard struct {
	Entry
	Section string `json:"section"`
	Text    string `json:"text"`
}

type setJobInput struct {
	Job string `json:"job"`
}

type addCardInput struct {
	ID      string `json:"id,omitempty"`
	Section string `json:"section"`
	Text    string `json:"text"`
}

func (in addCardInput) Validate() error {
	return oneOf("section", in.Section, JTBDSections...)
}

type editCardInput struct {
	ID      string `json:"id"`
	Section string `json:"section,omitempty"`
	Text    string `json:"text"`
}

func (in editCardInput) Target() string { return in.ID }

func (in editCardInput) Validate() error {
	if in.Section == "" {
		return nil
	}
	return oneOf("section", in.Section, JTBDSections...)
}

func jtbdCanvasSpec() *Spec[JTBDCanvas] {
	owner := func(p *JTBDCanvas, id string) (string, bool) { return authorOf(p.Cards, id) }

	setJob := Do("set_job", authz.CreatorOnly, func(p *JTBDCanvas, c *Call, in setJobInput) error {
		job, err := c.Text("job", in.Job, true)
		if err != nil {
			return err
		}
		p.Job = job
		return nil
	})

	add := Do("add_card", authz.Open, func(p *JTBDCanvas, c *Call, in addCardInput) error {
		text, err := c.Text("text", in.Text, true)
		if err != nil {
			return err
		}
		entry, replay, err := newEntry(c, p.Cards, "cards", in.ID)
		if err != nil || replay {
			return err
		}
		p.Cards = append(p.Cards, JTBDCard{Entry: entry, Section: in.Section, Text: text})
		return nil
	})

	edit := Do("edit_card", authz.OwnerOrAdmin, func(p *JTBDCanvas, c *Call, in editCardInput) error {
		text, err := c.Text("text", in.Text, true)
		if err != nil {
			return err
		}
		card := &p.Cards[indexOf(p.Cards, in.ID)]
		card.Text = text
		if in.Section != "" {
			card.Section = in.Section
		}
		return nil
	}).OwnedBy(owner)

	del := Do("delete_card", authz.OwnerOrAdmin, func(p *JTBDCanvas, c *Call, in idInput) error {
		p.Cards = removeAt(p.Cards, indexOf(p.Cards, in.ID))
		return nil
	}).OwnedBy(owner)

	return Define(activity.TypeJTBDCanvas, setJob, add, edit, del)
}
