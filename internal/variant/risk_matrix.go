package variant

import (
	"github.com/dyluth/huddle/internal/authz"
	"github.com/dyluth/huddle/pkg/activity"
)

// RiskMatrix places risks on a 5x5 probability/impact grid.
type RiskMatrix struct {
	Risks []Risk `json:"risks"`
}

// Risk is one entry of the matrix. Score is always Probability * Impact.
type Risk struct {
	Entry
	Title       string `json:"title"`
	Mitigation  string `json:"mitigation,omitempty"`
	Probability int    `json:"probability"`
	Impact      int    `json:"impact"`
	Score       int    `json:"score"`
}

func (r *Risk) rescore() {
	r.Score = r.Probability * r.Impact
}

type addRiskInput struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title"`
	Mitigation  string `json:"mitigation,omitempty"`
	Probability int    `json:"probability"`
	Impact      int    `json:"impact"`
}

func (in addRiskInput) Validate() error {
	if err := inRange("probability", in.Probability, 1, 5); err != nil {
		return err
	}
	return inRange("impact", in.Impact, 1, 5)
}

type updateRiskInput struct {
	ID          string  `json:"id"`
	Title       *string `json:"title,omitempty"`
	Mitigation  *string `json:"mitigation,omitempty"`
	Probability *int    `json:"probability,omitempty"`
	Impact      *int    `json:"impact,omitempty"`
}

func (in updateRiskInput) Target() string { return in.ID }

func (in updateRiskInput) Validate() error {
	if in.Probability != nil {
		if err := inRange("probability", *in.Probability, 1, 5); err != nil {
			return err
		}
	}
	if in.Impact != nil {
		return inRange("impact", *in.Impact, 1, 5)
	}
	return nil
}

func riskMatrixSpec() *Spec[RiskMatrix] {
	owner := func(p *RiskMatrix, id string) (string, bool) { return authorOf(p.Risks, id) }

	add := Do("add_risk", authz.Open, func(p *RiskMatrix, c *Call, in addRiskInput) error {
		title, err := c.Text("title", in.Title, true)
		if err != nil {
			return err
		}
		mitigation, err := c.Text("mitigation", in.Mitigation, false)
		if err != nil {
			return err
		}
		entry, replay, err := newEntry(c, p.Risks, "risks", in.ID)
		if err != nil || replay {
			return err
		}
		r := Risk{Entry: entry, Title: title, Mitigation: mitigation, Probability: in.Probability, Impact: in.Impact}
		r.rescore()
		p.Risks = append(p.Risks, r)
		return nil
	})

	update := Do("update_risk", authz.OwnerOrAdmin, func(p *RiskMatrix, c *Call, in updateRiskInput) error {
		r := &p.Risks[indexOf(p.Risks, in.ID)]
		if in.Title != nil {
			title, err := c.Text("title", *in.Title, true)
			if err != nil {
				return err
			}
			r.Title = title
		}
		if in.Mitigation != nil {
			mitigation, err := c.Text("mitigation", *in.Mitigation, false)
			if err != nil {
				return err
			}
			r.Mitigation = mitigation
		}
		if in.Probability != nil {
			r.Probability = *in.Probability
		}
		if in.Impact != nil {
			r.Impact = *in.Impact
		}
		r.rescore()
		return nil
	}).OwnedBy(owner)

	del := Do("delete_risk", authz.OwnerOrAdmin, func(p *RiskMatrix, c *Call, in idInput) error {
		p.Risks = removeAt(p.Risks, indexOf(p.Risks, in.ID))
		return nil
	}).OwnedBy(owner)

	return Define(activity.TypeRiskMatrix, add, update, del)
}
