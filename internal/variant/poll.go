package variant

import (
	"strings"

	"github.com/dyluth/huddle/internal/authz"
	"github.com/dyluth/huddle/pkg/activity"
)

// Poll is a single-choice vote over fixed options. Votes cannot be changed.
type Poll struct {
	Question string       `json:"question"`
	Options  []PollOption `json:"options"`
	Ballots  []Ballot     `json:"ballots"`
}

// PollOption is one choice. Votes is derived from the ballots.
type PollOption struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Votes int    `json:"votes"`
}

// Ballot records one participant's vote; the entry author is the voter.
type Ballot struct {
	Entry
	OptionID string `json:"option_id"`
}

// Counts returns votes keyed by option text.
func (p *Poll) Counts() map[string]int {
	counts := make(map[string]int, len(p.Options))
	for _, o := range p.Options {
		counts[o.Text] = o.Votes
	}
	return counts
}

func (p *Poll) tally() {
	for i := range p.Options {
		p.Options[i].Votes = 0
		for _, b := range p.Ballots {
			if b.OptionID == p.Options[i].ID {
				p.Options[i].Votes++
			}
		}
	}
}

type pollSetup struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

func (in pollSetup) Validate() error {
	if len(in.Options) < 2 || len(in.Options) > 10 {
		return activity.InvalidField("options", "a poll needs between 2 and 10 options, got %d", len(in.Options))
	}
	seen := make(map[string]bool, len(in.Options))
	for _, o := range in.Options {
		key := strings.ToLower(strings.TrimSpace(o))
		if key == "" {
			return activity.InvalidField("options", "options must not be empty")
		}
		if seen[key] {
			return activity.InvalidField("options", "duplicate option %q", o)
		}
		seen[key] = true
	}
	return nil
}

type pollVote struct {
	OptionID string `json:"option_id"`
}

func pollSpec() *Spec[Poll] {
	setup := Do("setup", authz.Open, func(p *Poll, c *Call, in pollSetup) error {
		q, err := c.Text("question", in.Question, true)
		if err != nil {
			return err
		}
		p.Question = q
		p.Ballots = []Ballot{}
		for _, o := range in.Options {
			text, err := c.Text("options", o, true)
			if err != nil {
				return err
			}
			p.Options = append(p.Options, PollOption{ID: c.NewID(), Text: text})
		}
		return nil
	})

	vote := Do("vote", authz.Open, func(p *Poll, c *Call, in pollVote) error {
		found := false
		for _, o := range p.Options {
			if o.ID == in.OptionID {
				found = true
				break
			}
		}
		if !found {
			return activity.InvalidField("option_id", "no option with id %q", in.OptionID)
		}
		for _, b := range p.Ballots {
			if b.AuthorID == c.Actor.ID {
				return activity.Forbidden("vote: a poll accepts one vote per participant")
			}
		}
		entry, _, err := newEntry(c, p.Ballots, "ballots", "")
		if err != nil {
			return err
		}
		p.Ballots = append(p.Ballots, Ballot{Entry: entry, OptionID: in.OptionID})
		p.tally()
		return nil
	})

	return Define(activity.TypePoll, vote).WithSetup(setup)
}
