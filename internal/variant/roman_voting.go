package variant

import (
	"github.com/dyluth/huddle/internal/authz"
	"github.com/dyluth/huddle/pkg/activity"
)

// Roman voting choices.
const (
	ThumbUp       = "up"
	ThumbDown     = "down"
	ThumbSideways = "sideways"
)

// RomanVoting is a thumbs up/down/sideways temperature check.
type RomanVoting struct {
	Question string         `json:"question"`
	Votes    []RomanVote    `json:"votes"`
	Tally    map[string]int `json:"tally"`
}

// RomanVote is one participant's current thumb.
type RomanVote struct {
	Entry
	Choice string `json:"choice"`
}

func (p *RomanVoting) recount() {
	p.Tally = map[string]int{ThumbUp: 0, ThumbDown: 0, ThumbSideways: 0}
	for _, v := range p.Votes {
		p.Tally[v.Choice]++
	}
}

type romanSetup struct {
	Question string `json:"question"`
}

type romanVoteInput struct {
	Choice string `json:"choice"`
}

func (in romanVoteInput) Validate() error {
	return oneOf("choice", in.Choice, ThumbUp, ThumbDown, ThumbSideways)
}

func romanVotingSpec() *Spec[RomanVoting] {
	setup := Do("setup", authz.Open, func(p *RomanVoting, c *Call, in romanSetup) error {
		q, err := c.Text("question", in.Question, true)
		if err != nil {
			return err
		}
		p.Question = q
		p.Votes = []RomanVote{}
		p.recount()
		return nil
	})

	vote := Do("vote", authz.Open, func(p *RomanVoting, c *Call, in romanVoteInput) error {
		defer p.recount()
		for i := range p.Votes {
			if p.Votes[i].AuthorID == c.Actor.ID {
				p.Votes[i].Choice = in.Choice
				return nil
			}
		}
		entry, _, err := newEntry(c, p.Votes, "votes", "")
		if err != nil {
			return err
		}
		p.Votes = append(p.Votes, RomanVote{Entry: entry, Choice: in.Choice})
		return nil
	})

	retract := Do("retract_vote", authz.Open, func(p *RomanVoting, c *Call, _ struct{}) error {
		for i := range p.Votes {
			if p.Votes[i].AuthorID == c.Actor.ID {
				p.Votes = removeAt(p.Votes, i)
				p.recount()
				return nil
			}
		}
		return activity.InvalidField("vote", "no vote to retract")
	})

	return Define(activity.TypeRomanVoting, vote, retract).WithSetup(setup)
}
