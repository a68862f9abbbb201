package variant

import (
	"github.com/dyluth/huddle/internal/authz"
	"github.com/dyluth/huddle/pkg/activity"
)

// VAKOGSenses are the five sensory columns of the board.
var VAKOGSenses = []string{"visual", "auditory", "kinesthetic", "olfactory", "gustatory"}

// VAKOGBoard maps an experience across the five senses.
type VAKOGBoard struct {
	Notes []SenseNote `json:"notes"`
}

// SenseNote is one observation filed under a sense.
type SenseNote struct {
	Entry
	Sense string `json:"sense"`
	Text  string `json:"text"`
}

type addNoteInput struct {
	ID    string `json:"id,omitempty"`
	Sense string `json:"sense"`
	Text  string `json:"text"`
}

func (in addNoteInput) Validate() error {
	return oneOf("sense", in.Sense, VAKOGSenses...)
}

type editNoteInput struct {
	ID    string `json:"id"`
	Sense string `json:"sense,omitempty"`
	Text  string `json:"text"`
}

func (in editNoteInput) Target() string { return in.ID }

func (in editNoteInput) Validate() error {
	if in.Sense == "" {
		return nil
	}
	return oneOf("sense", in.Sense, VAKOGSenses...)
}

func vakogBoardSpec() *Spec[VAKOGBoard] {
	owner := func(p *VAKOGBoard, id string) (string, bool) { return authorOf(p.Notes, id) }

	add := Do("add_note", authz.Open, func(p *VAKOGBoard, c *Call, in addNoteInput) error {
		text, err := c.Text("text", in.Text, true)
		if err != nil {
			return err
		}
		entry, replay, err := newEntry(c, p.Notes, "notes", in.ID)
		if err != nil || replay {
			return err
		}
		p.Notes = append(p.Notes, SenseNote{Entry: entry, Sense: in.Sense, Text: text})
		return nil
	})

	edit := Do("edit_note", authz.OwnerOrAdmin, func(p *VAKOGBoard, c *Call, in editNoteInput) error {
		text, err := c.Text("text", in.Text, true)
		if err != nil {
			return err
		}
		note := &p.Notes[indexOf(p.Notes, in.ID)]
		note.Text = text
		if in.Sense != "" {
			note.Sense = in.Sense
		}
		return nil
	}).OwnedBy(owner)

	del := Do("delete_note", authz.OwnerOrAdmin, func(p *VAKOGBoard, c *Call, in idInput) error {
		p.Notes = removeAt(p.Notes, indexOf(p.Notes, in.ID))
		return nil
	}).OwnedBy(owner)

	return Define(activity.TypeVAKOGBoard, add, edit, del)
}
