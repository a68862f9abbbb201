package variant

import (
	"github.com/dyluth/huddle/internal/authz"
	"github.com/dyluth/huddle/pkg/activity"
)

// Node kinds by depth for each tree variant.
var (
	OpportunityTreeLevels = []string{"outcome", "opportunity", "solution", "experiment"}
	ImpactMappingLevels   = []string{"goal", "actor", "impact", "deliverable"}
	FuturesWheelLevels    = []string{"first_order", "second_order", "third_order"}
)

// An opportunity solution tree and an impact map each grow from a single root.
func opportunityTreeSpec() *Spec[Tree] {
	return Define(activity.TypeOpportunityTree, treeActions(OpportunityTreeLevels, 1)...)
}

func impactMappingSpec() *Spec[Tree] {
	return Define(activity.TypeImpactMapping, treeActions(ImpactMappingLevels, 1)...)
}

type futuresWheelSetup struct {
	Event string `json:"event"`
}

// The futures wheel's central event comes from setup; top-level nodes are
// the first ring of consequences around it.
func futuresWheelSpec() *Spec[Tree] {
	setup := Do("setup", authz.Open, func(p *Tree, c *Call, in futuresWheelSetup) error {
		event, err := c.Text("event", in.Event, true)
		if err != nil {
			return err
		}
		p.Center = event
		p.Nodes = []Node{}
		return nil
	})
	return Define(activity.TypeFuturesWheel, treeActions(FuturesWheelLevels, 0)...).WithSetup(setup)
}
