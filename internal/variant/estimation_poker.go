package variant

import (
	"strings"

	"github.com/dyluth/huddle/internal/authz"
	"github.com/dyluth/huddle/pkg/activity"
)

// DefaultDeck is the modified Fibonacci deck used when setup names none.
var DefaultDeck = []string{"0", "1", "2", "3", "5", "8", "13", "21", "?"}

// EstimationPoker is planning poker: hidden estimates, a creator reveal,
// and a final value that closes the session.
type EstimationPoker struct {
	Story      string     `json:"story"`
	Deck       []string   `json:"deck"`
	Revealed   bool       `json:"revealed"`
	Estimates  []Estimate `json:"estimates"`
	FinalValue string     `json:"final_value,omitempty"`
}

// Estimate is one participant's current card.
type Estimate struct {
	Entry
	Value string `json:"value"`
}

func (p *EstimationPoker) inDeck(field, value string) error {
	if contains(p.Deck, value) {
		return nil
	}
	return activity.InvalidField(field, "%q is not in the deck %v", value, p.Deck)
}

type pokerSetup struct {
	Story string   `json:"story"`
	Deck  []string `json:"deck,omitempty"`
}

func (in pokerSetup) Validate() error {
	if len(in.Deck) > 20 {
		return activity.InvalidField("deck", "at most 20 cards")
	}
	seen := map[string]bool{}
	for _, card := range in.Deck {
		card = strings.TrimSpace(card)
		if card == "" || len(card) > 8 {
			return activity.InvalidField("deck", "cards must be 1 to 8 characters")
		}
		if seen[card] {
			return activity.InvalidField("deck", "duplicate card %q", card)
		}
		seen[card] = true
	}
	return nil
}

type pokerValue struct {
	Value string `json:"value"`
}

func estimationPokerSpec() *Spec[EstimationPoker] {
	setup := Do("setup", authz.Open, func(p *EstimationPoker, c *Call, in pokerSetup) error {
		story, err := c.Text("story", in.Story, true)
		if err != nil {
			return err
		}
		p.Story = story
		p.Estimates = []Estimate{}
		p.Deck = append([]string(nil), DefaultDeck...)
		if len(in.Deck) > 0 {
			p.Deck = p.Deck[:0]
			for _, card := range in.Deck {
				p.Deck = append(p.Deck, strings.TrimSpace(card))
			}
		}
		return nil
	})

	estimate := Do("estimate", authz.Open, func(p *EstimationPoker, c *Call, in pokerValue) error {
		if p.Revealed {
			return activity.InvalidField("value", "estimates are revealed; reset the round to estimate again")
		}
		if err := p.inDeck("value", in.Value); err != nil {
			return err
		}
		for i := range p.Estimates {
			if p.Estimates[i].AuthorID == c.Actor.ID {
				p.Estimates[i].Value = in.Value
				return nil
			}
		}
		entry, _, err := newEntry(c, p.Estimates, "estimates", "")
		if err != nil {
			return err
		}
		p.Estimates = append(p.Estimates, Estimate{Entry: entry, Value: in.Value})
		return nil
	})

	reveal := Do("reveal", authz.CreatorOnly, func(p *EstimationPoker, c *Call, _ struct{}) error {
		if len(p.Estimates) == 0 {
			return activity.InvalidField("estimates", "nothing to reveal yet")
		}
		p.Revealed = true
		return nil
	})

	reset := Do("reset", authz.CreatorOnly, func(p *EstimationPoker, c *Call, _ struct{}) error {
		p.Estimates = []Estimate{}
		p.Revealed = false
		return nil
	})

	finalize := Do("finalize", authz.CreatorOnly, func(p *EstimationPoker, c *Call, in pokerValue) error {
		if err := p.inDeck("value", in.Value); err != nil {
			return err
		}
		p.FinalValue = in.Value
		p.Revealed = true
		return nil
	}).Closing()

	return Define(activity.TypeEstimationPoker, estimate, reveal, reset, finalize).WithSetup(setup)
}
