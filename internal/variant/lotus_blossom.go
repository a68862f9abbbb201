package variant

import (
	"github.com/dyluth/huddle/internal/authz"
	"github.com/dyluth/huddle/pkg/activity"
)

const (
	lotusMaxPetals        = 8
	lotusMaxIdeasPerPetal = 8
)

// LotusBlossom expands a central theme into eight petals of eight ideas.
type LotusBlossom struct {
	Theme  string      `json:"theme"`
	Petals []Petal     `json:"petals"`
	Ideas  []LotusIdea `json:"ideas"`
}

// Petal is one sub-theme around the center.
type Petal struct {
	Entry
	Text string `json:"text"`
}

// LotusIdea belongs to exactly one petal.
type LotusIdea struct {
	Entry
	PetalID string `json:"petal_id"`
	Text    string `json:"text"`
}

type lotusSetup struct {
	Theme string `json:"theme"`
}

type addLotusIdeaInput struct {
	ID      string `json:"id,omitempty"`
	PetalID string `json:"petal_id"`
	Text    string `json:"text"`
}

func lotusBlossomSpec() *Spec[LotusBlossom] {
	setup := Do("setup", authz.Open, func(p *LotusBlossom, c *Call, in lotusSetup) error {
		theme, err := c.Text("theme", in.Theme, true)
		if err != nil {
			return err
		}
		p.Theme, p.Petals, p.Ideas = theme, []Petal{}, []LotusIdea{}
		return nil
	})

	addPetal := Do("add_petal", authz.Open, func(p *LotusBlossom, c *Call, in addTextInput) error {
		if in.ID != "" && indexOf(p.Petals, in.ID) >= 0 {
			_, _, err := newEntry(c, p.Petals, "petals", in.ID)
			return err
		}
		text, err := c.Text("text", in.Text, true)
		if err != nil {
			return err
		}
		if len(p.Petals) >= lotusMaxPetals {
			return activity.LimitExceeded("at most %d petals", lotusMaxPetals)
		}
		entry, _, err := newEntry(c, p.Petals, "petals", in.ID)
		if err != nil {
			return err
		}
		p.Petals = append(p.Petals, Petal{Entry: entry, Text: text})
		return nil
	})

	addIdea := Do("add_idea", authz.Open, func(p *LotusBlossom, c *Call, in addLotusIdeaInput) error {
		if in.ID != "" && indexOf(p.Ideas, in.ID) >= 0 {
			_, _, err := newEntry(c, p.Ideas, "ideas", in.ID)
			return err
		}
		if _, err := mustFind(p.Petals, "petal_id", in.PetalID); err != nil {
			return err
		}
		text, err := c.Text("text", in.Text, true)
		if err != nil {
			return err
		}
		n := 0
		for _, idea := range p.Ideas {
			if idea.PetalID == in.PetalID {
				n++
			}
		}
		if n >= lotusMaxIdeasPerPetal {
			return activity.LimitExceeded("at most %d ideas per petal", lotusMaxIdeasPerPetal)
		}
		entry, _, err := newEntry(c, p.Ideas, "ideas", in.ID)
		if err != nil {
			return err
		}
		p.Ideas = append(p.Ideas, LotusIdea{Entry: entry, PetalID: in.PetalID, Text: text})
		return nil
	})

	deletePetal := Do("delete_petal", authz.OwnerOrAdmin, func(p *LotusBlossom, c *Call, in idInput) error {
		p.Petals = removeAt(p.Petals, indexOf(p.Petals, in.ID))
		kept := p.Ideas[:0]
		for _, idea := range p.Ideas {
			if idea.PetalID != in.ID {
				kept = append(kept, idea)
			}
		}
		p.Ideas = kept
		return nil
	}).OwnedBy(func(p *LotusBlossom, id string) (string, bool) { return authorOf(p.Petals, id) })

	deleteIdea := Do("delete_idea", authz.OwnerOrAdmin, func(p *LotusBlossom, c *Call, in idInput) error {
		p.Ideas = removeAt(p.Ideas, indexOf(p.Ideas, in.ID))
		return nil
	}).OwnedBy(func(p *LotusBlossom, id string) (string, bool) { return authorOf(p.Ideas, id) })

	return Define(activity.TypeLotusBlossom, addPetal, addIdea, deletePetal, deleteIdea).WithSetup(setup)
}
