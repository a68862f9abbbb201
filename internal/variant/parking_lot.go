package variant

import (
	"github.com/dyluth/huddle/internal/authz"
	"github.com/dyluth/huddle/pkg/activity"
)

// ParkingLot collects off-topic items to revisit later.
type ParkingLot struct {
	Items []ParkedItem `json:"items"`
}

// ParkedItem is one parked item.
type ParkedItem struct {
	Entry
	Text         string `json:"text"`
	Resolved     bool   `json:"resolved"`
	ResolvedBy   string `json:"resolved_by,omitempty"`
	ResolvedAtMs int64  `json:"resolved_at_ms,omitempty"`
}

type addTextInput struct {
	ID   string `json:"id,omitempty"`
	Text string `json:"text"`
}

type editTextInput struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

func (in editTextInput) Target() string { return in.ID }

type idInput struct {
	ID string `json:"id"`
}

func (in idInput) Target() string { return in.ID }

func parkingLotSpec() *Spec[ParkingLot] {
	owner := func(p *ParkingLot, id string) (string, bool) { return authorOf(p.Items, id) }

	add := Do("add_item", authz.Open, func(p *ParkingLot, c *Call, in addTextInput) error {
		text, err := c.Text("text", in.Text, true)
		if err != nil {
			return err
		}
		entry, replay, err := newEntry(c, p.Items, "items", in.ID)
		if err != nil || replay {
			return err
		}
		p.Items = append(p.Items, ParkedItem{Entry: entry, Text: text})
		return nil
	})

	edit := Do("edit_item", authz.OwnerOrAdmin, func(p *ParkingLot, c *Call, in editTextInput) error {
		text, err := c.Text("text", in.Text, true)
		if err != nil {
			return err
		}
		p.Items[indexOf(p.Items, in.ID)].Text = text
		return nil
	}).OwnedBy(owner)

	del := Do("delete_item", authz.OwnerOrAdmin, func(p *ParkingLot, c *Call, in idInput) error {
		p.Items = removeAt(p.Items, indexOf(p.Items, in.ID))
		return nil
	}).OwnedBy(owner)

	resolve := Do("resolve_item", authz.CreatorOnly, func(p *ParkingLot, c *Call, in idInput) error {
		i, err := mustFind(p.Items, "id", in.ID)
		if err != nil {
			return err
		}
		if p.Items[i].Resolved {
			return activity.InvalidField("id", "item is already resolved")
		}
		p.Items[i].Resolved = true
		p.Items[i].ResolvedBy = c.Actor.ID
		p.Items[i].ResolvedAtMs = c.NowMs()
		return nil
	})

	return Define(activity.TypeParkingLot, add, edit, del, resolve)
}
