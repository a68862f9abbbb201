package variant

import (
	"github.com/dyluth/huddle/internal/authz"
	"github.com/dyluth/huddle/pkg/activity"
)

const (
	brainwritingMaxParticipants = 6
	brainwritingMaxRounds       = 6
	brainwritingDefaultPerRound = 3
)

// Brainwriting is 6-3-5 style silent ideation: a fixed roster writes a
// bounded number of ideas per round, rounds advanced by the creator.
type Brainwriting struct {
	Prompt        string        `json:"prompt"`
	Round         int           `json:"round"`
	MaxRounds     int           `json:"max_rounds"`
	IdeasPerRound int           `json:"ideas_per_round"`
	Participants  []Participant `json:"participants"`
	Ideas         []Idea        `json:"ideas"`
}

// Participant is a roster entry; the author is the participant.
type Participant struct {
	Entry
}

// Idea is one submission, tagged with the round it was written in.
type Idea struct {
	Entry
	Round    int    `json:"round"`
	Text     string `json:"text"`
	BuildsOn string `json:"builds_on,omitempty"`
}

func (p *Brainwriting) submitted(actorID string, round int) int {
	n := 0
	for _, idea := range p.Ideas {
		if idea.AuthorID == actorID && idea.Round == round {
			n++
		}
	}
	return n
}

type brainwritingSetup struct {
	Prompt        string `json:"prompt"`
	IdeasPerRound int    `json:"ideas_per_round,omitempty"`
}

func (in brainwritingSetup) Validate() error {
	if in.IdeasPerRound != 0 {
		return inRange("ideas_per_round", in.IdeasPerRound, 1, 10)
	}
	return nil
}

type submitIdeaInput struct {
	ID       string `json:"id,omitempty"`
	Text     string `json:"text"`
	BuildsOn string `json:"builds_on,omitempty"`
}

type deleteIdeaInput struct {
	ID string `json:"id"`
}

func (in deleteIdeaInput) Target() string { return in.ID }

func brainwritingSpec() *Spec[Brainwriting] {
	setup := Do("setup", authz.Open, func(p *Brainwriting, c *Call, in brainwritingSetup) error {
		prompt, err := c.Text("prompt", in.Prompt, true)
		if err != nil {
			return err
		}
		p.Prompt = prompt
		p.Round = 1
		p.MaxRounds = brainwritingMaxRounds
		p.IdeasPerRound = brainwritingDefaultPerRound
		if in.IdeasPerRound > 0 {
			p.IdeasPerRound = in.IdeasPerRound
		}
		p.Participants = []Participant{}
		p.Ideas = []Idea{}
		return nil
	})

	join := Do("join", authz.Open, func(p *Brainwriting, c *Call, _ struct{}) error {
		if indexOf(p.Participants, c.Actor.ID) >= 0 {
			return activity.LimitExceeded("%s has already joined", c.Actor.DisplayName())
		}
		if len(p.Participants) >= brainwritingMaxParticipants {
			return activity.LimitExceeded("brainwriting is limited to %d participants", brainwritingMaxParticipants)
		}
		// participant entries are keyed by actor id so membership checks are lookups
		p.Participants = append(p.Participants, Participant{Entry{
			ID:          c.Actor.ID,
			AuthorID:    c.Actor.ID,
			AuthorName:  c.Actor.DisplayName(),
			CreatedAtMs: c.NowMs(),
		}})
		return nil
	})

	submit := Do("submit_idea", authz.Open, func(p *Brainwriting, c *Call, in submitIdeaInput) error {
		if indexOf(p.Participants, c.Actor.ID) < 0 {
			return activity.Forbidden("submit_idea: join the session before submitting ideas")
		}
		if in.ID != "" && indexOf(p.Ideas, in.ID) >= 0 {
			_, _, err := newEntry(c, p.Ideas, "ideas", in.ID)
			return err
		}
		text, err := c.Text("text", in.Text, true)
		if err != nil {
			return err
		}
		if in.BuildsOn != "" && indexOf(p.Ideas, in.BuildsOn) < 0 {
			return activity.InvalidField("builds_on", "no idea with id %q", in.BuildsOn)
		}
		if n := p.submitted(c.Actor.ID, p.Round); n >= p.IdeasPerRound {
			return activity.LimitExceeded("%d ideas already submitted in round %d (limit %d)", n, p.Round, p.IdeasPerRound)
		}
		entry, _, err := newEntry(c, p.Ideas, "ideas", in.ID)
		if err != nil {
			return err
		}
		p.Ideas = append(p.Ideas, Idea{Entry: entry, Round: p.Round, Text: text, BuildsOn: in.BuildsOn})
		return nil
	})

	nextRound := Do("next_round", authz.CreatorOnly, func(p *Brainwriting, c *Call, _ struct{}) error {
		if p.Round >= p.MaxRounds {
			return activity.LimitExceeded("brainwriting is limited to %d rounds", p.MaxRounds)
		}
		p.Round++
		return nil
	})

	deleteIdea := Do("delete_idea", authz.OwnerOrAdmin, func(p *Brainwriting, c *Call, in deleteIdeaInput) error {
		p.Ideas = removeAt(p.Ideas, indexOf(p.Ideas, in.ID))
		return nil
	}).OwnedBy(func(p *Brainwriting, id string) (string, bool) { return authorOf(p.Ideas, id) })

	return Define(activity.TypeBrainwriting, join, submit, nextRound, deleteIdea).WithSetup(setup)
}
