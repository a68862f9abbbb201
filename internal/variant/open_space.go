package variant

import (
	"strings"

	"github.com/dyluth/huddle/internal/authz"
	"github.com/dyluth/huddle/pkg/activity"
)

// OpenSpace is an unconference marketplace: anyone proposes a session,
// the creator places proposals into a slot/room grid.
type OpenSpace struct {
	Slots     []string   `json:"slots"`
	Rooms     []string   `json:"rooms"`
	Proposals []Proposal `json:"proposals"`
}

// Proposal is one proposed session. Slot and Room are empty until scheduled.
type Proposal struct {
	Entry
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Slot        string   `json:"slot,omitempty"`
	Room        string   `json:"room,omitempty"`
	AttendeeIDs []string `json:"attendee_ids"`
}

type openSpaceSetup struct {
	Slots []string `json:"slots"`
	Rooms []string `json:"rooms"`
}

func (in openSpaceSetup) Validate() error {
	if err := distinctNames("slots", in.Slots); err != nil {
		return err
	}
	return distinctNames("rooms", in.Rooms)
}

func distinctNames(field string, names []string) error {
	if len(names) == 0 || len(names) > 50 {
		return activity.InvalidField(field, "needs between 1 and 50 entries")
	}
	seen := map[string]bool{}
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			return activity.InvalidField(field, "entries must not be empty")
		}
		if seen[n] {
			return activity.InvalidField(field, "duplicate entry %q", n)
		}
		seen[n] = true
	}
	return nil
}

type proposeInput struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type scheduleInput struct {
	ID   string `json:"id"`
	Slot string `json:"slot"`
	Room string `json:"room"`
}

func openSpaceSpec() *Spec[OpenSpace] {
	setup := Do("setup", authz.Open, func(p *OpenSpace, c *Call, in openSpaceSetup) error {
		for _, s := range in.Slots {
			p.Slots = append(p.Slots, strings.TrimSpace(s))
		}
		for _, r := range in.Rooms {
			p.Rooms = append(p.Rooms, strings.TrimSpace(r))
		}
		p.Proposals = []Proposal{}
		return nil
	})

	propose := Do("propose", authz.Open, func(p *OpenSpace, c *Call, in proposeInput) error {
		title, err := c.Text("title", in.Title, true)
		if err != nil {
			return err
		}
		desc, err := c.Text("description", in.Description, false)
		if err != nil {
			return err
		}
		entry, replay, err := newEntry(c, p.Proposals, "proposals", in.ID)
		if err != nil || replay {
			return err
		}
		p.Proposals = append(p.Proposals, Proposal{Entry: entry, Title: title, Description: desc, AttendeeIDs: []string{}})
		return nil
	})

	attend := Do("attend", authz.Open, func(p *OpenSpace, c *Call, in idInput) error {
		i, err := mustFind(p.Proposals, "id", in.ID)
		if err != nil {
			return err
		}
		p.Proposals[i].AttendeeIDs, _ = toggle(p.Proposals[i].AttendeeIDs, c.Actor.ID)
		return nil
	})

	withdraw := Do("withdraw", authz.OwnerOrAdmin, func(p *OpenSpace, c *Call, in idInput) error {
		p.Proposals = removeAt(p.Proposals, indexOf(p.Proposals, in.ID))
		return nil
	}).OwnedBy(func(p *OpenSpace, id string) (string, bool) { return authorOf(p.Proposals, id) })

	schedule := Do("schedule", authz.CreatorOnly, func(p *OpenSpace, c *Call, in scheduleInput) error {
		i, err := mustFind(p.Proposals, "id", in.ID)
		if err != nil {
			return err
		}
		if !contains(p.Slots, in.Slot) {
			return activity.InvalidField("slot", "unknown slot %q", in.Slot)
		}
		if !contains(p.Rooms, in.Room) {
			return activity.InvalidField("room", "unknown room %q", in.Room)
		}
		for j, other := range p.Proposals {
			if j != i && other.Slot == in.Slot && other.Room == in.Room {
				return activity.InvalidField("room", "%s is already booked in %s by %q", in.Room, in.Slot, other.Title)
			}
		}
		p.Proposals[i].Slot = in.Slot
		p.Proposals[i].Room = in.Room
		return nil
	})

	return Define(activity.TypeOpenSpace, propose, attend, withdraw, schedule).WithSetup(setup)
}
