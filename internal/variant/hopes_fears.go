package variant

import (
	"github.com/dyluth/huddle/internal/authz"
	"github.com/dyluth/huddle/pkg/activity"
)

// HopesFears gathers what a team hopes for and fears about an endeavour.
type HopesFears struct {
	Items []HopeFear `json:"items"`
}

// HopeFear is one card; Kind is "hope" or "fear".
type HopeFear struct {
	Entry
	Kind     string   `json:"kind"`
	Text     string   `json:"text"`
	VoterIDs []string `json:"voter_ids"`
}

type addHopeFearInput struct {
	ID   string `json:"id,omitempty"`
	Kind string `json:"kind"`
	Text string `json:"text"`
}

func (in addHopeFearInput) Validate() error {
	return oneOf("kind", in.Kind, "hope", "fear")
}

func hopesFearsSpec() *Spec[HopesFears] {
	add := Do("add_item", authz.Open, func(p *HopesFears, c *Call, in addHopeFearInput) error {
		text, err := c.Text("text", in.Text, true)
		if err != nil {
			return err
		}
		entry, replay, err := newEntry(c, p.Items, "items", in.ID)
		if err != nil || replay {
			return err
		}
		p.Items = append(p.Items, HopeFear{Entry: entry, Kind: in.Kind, Text: text, VoterIDs: []string{}})
		return nil
	})

	vote := Do("vote", authz.Open, func(p *HopesFears, c *Call, in idInput) error {
		i, err := mustFind(p.Items, "id", in.ID)
		if err != nil {
			return err
		}
		p.Items[i].VoterIDs, _ = toggle(p.Items[i].VoterIDs, c.Actor.ID)
		return nil
	})

	del := Do("delete_item", authz.OwnerOrAdmin, func(p *HopesFears, c *Call, in idInput) error {
		p.Items = removeAt(p.Items, indexOf(p.Items, in.ID))
		return nil
	}).OwnedBy(func(p *HopesFears, id string) (string, bool) { return authorOf(p.Items, id) })

	return Define(activity.TypeHopesFears, add, vote, del)
}
