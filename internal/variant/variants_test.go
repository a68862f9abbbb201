package variant

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/huddle/pkg/activity"
)

func TestPoll(t *testing.T) {
	t.Run("one vote per participant", func(t *testing.T) {
		h := newHarness(t, activity.TypePoll, m{"question": "Ship it?", "options": []string{"A", "B"}})
		var p Poll
		h.decode(&p)
		require.Len(t, p.Options, 2)
		optA, optB := p.Options[0].ID, p.Options[1].ID

		h.must(bob, "vote", m{"option_id": optA})
		h.must(carol, "vote", m{"option_id": optB})

		h.decode(&p)
		assert.Equal(t, map[string]int{"A": 1, "B": 1}, p.Counts())

		err := h.do(bob, "vote", m{"option_id": optB})
		assert.ErrorIs(t, err, activity.ErrForbidden)
		h.decode(&p)
		assert.Equal(t, map[string]int{"A": 1, "B": 1}, p.Counts())
	})

	t.Run("unknown option", func(t *testing.T) {
		h := newHarness(t, activity.TypePoll, m{"question": "Ship it?", "options": []string{"A", "B"}})
		assert.ErrorIs(t, h.do(bob, "vote", m{"option_id": "zzz"}), activity.ErrInvalidInput)
	})

	t.Run("setup validation", func(t *testing.T) {
		handler, _ := Builtin().Resolve(activity.TypePoll)
		c := NewCall(&activity.Session{CreatedBy: "alice"}, alice, testNow)
		for _, setup := range []string{
			`{"question":"q","options":["only"]}`,
			`{"question":"q","options":["a","A"]}`,
			`{"question":"","options":["a","b"]}`,
			`{"question":"q","options":["a",""]}`,
		} {
			_, err := handler.Create(c, []byte(setup))
			assert.ErrorIs(t, err, activity.ErrInvalidInput, setup)
		}
	})
}

func TestEstimationPoker(t *testing.T) {
	h := newHarness(t, activity.TypeEstimationPoker, m{"story": "Login page"})

	h.must(bob, "estimate", m{"value": "3"})
	h.must(bob, "estimate", m{"value": "5"})
	h.must(carol, "estimate", m{"value": "8"})

	var p EstimationPoker
	h.decode(&p)
	require.Len(t, p.Estimates, 2, "re-estimating overwrites")
	assert.Equal(t, "5", p.Estimates[0].Value)

	assert.ErrorIs(t, h.do(bob, "estimate", m{"value": "4"}), activity.ErrInvalidInput, "not in deck")
	assert.ErrorIs(t, h.do(bob, "reveal", nil), activity.ErrForbidden)

	h.must(alice, "reveal", nil)
	assert.ErrorIs(t, h.do(bob, "estimate", m{"value": "3"}), activity.ErrInvalidInput, "no estimating after reveal")

	h.must(alice, "reset", nil)
	h.decode(&p)
	assert.False(t, p.Revealed)
	assert.Empty(t, p.Estimates)

	h.must(alice, "finalize", m{"value": "5"})
	h.decode(&p)
	assert.Equal(t, "5", p.FinalValue)
}

func TestBrainwriting(t *testing.T) {
	t.Run("per round cap keeps earlier ideas", func(t *testing.T) {
		h := newHarness(t, activity.TypeBrainwriting, m{"prompt": "Onboarding", "ideas_per_round": 2})
		h.must(bob, "join", nil)
		h.must(bob, "submit_idea", m{"text": "buddy system"})
		h.must(bob, "submit_idea", m{"text": "welcome kit"})

		err := h.do(bob, "submit_idea", m{"text": "one too many"})
		assert.ErrorIs(t, err, activity.ErrLimitExceeded)

		var p Brainwriting
		h.decode(&p)
		require.Len(t, p.Ideas, 2)
		assert.Equal(t, "buddy system", p.Ideas[0].Text)
		assert.Equal(t, "welcome kit", p.Ideas[1].Text)

		h.must(alice, "next_round", nil)
		h.must(bob, "submit_idea", m{"text": "round two"})
		h.decode(&p)
		assert.Equal(t, 2, p.Ideas[2].Round)
	})

	t.Run("roster is capped at six and joins once", func(t *testing.T) {
		h := newHarness(t, activity.TypeBrainwriting, m{"prompt": "p"})
		for i := 0; i < 6; i++ {
			h.must(activity.Actor{ID: fmt.Sprintf("user-%d", i)}, "join", nil)
		}
		assert.ErrorIs(t, h.do(activity.Actor{ID: "user-6"}, "join", nil), activity.ErrLimitExceeded)
		assert.ErrorIs(t, h.do(activity.Actor{ID: "user-0"}, "join", nil), activity.ErrLimitExceeded)
	})

	t.Run("rounds are capped at six", func(t *testing.T) {
		h := newHarness(t, activity.TypeBrainwriting, m{"prompt": "p"})
		for i := 0; i < 5; i++ {
			h.must(alice, "next_round", nil)
		}
		assert.ErrorIs(t, h.do(alice, "next_round", nil), activity.ErrLimitExceeded)
	})

	t.Run("non participants cannot submit", func(t *testing.T) {
		h := newHarness(t, activity.TypeBrainwriting, m{"prompt": "p"})
		assert.ErrorIs(t, h.do(bob, "submit_idea", m{"text": "x"}), activity.ErrForbidden)
	})
}

func TestLeanCoffee(t *testing.T) {
	h := newHarness(t, activity.TypeLeanCoffee, nil)
	h.must(bob, "add_topic", m{"id": "A", "title": "Hiring"})
	h.must(carol, "add_topic", m{"id": "B", "title": "Roadmap"})

	t.Run("finish discussion", func(t *testing.T) {
		assert.ErrorIs(t, h.do(alice, "finish_discussion", nil), activity.ErrInvalidInput, "nothing under discussion")
		h.must(alice, "start_discussion", m{"topic_id": "A"})
		assert.ErrorIs(t, h.do(bob, "finish_discussion", nil), activity.ErrForbidden)

		h.must(alice, "finish_discussion", nil)
		var p LeanCoffee
		h.decode(&p)
		assert.Equal(t, TopicDiscussed, p.Topics[0].Status)
		assert.Empty(t, p.CurrentTopicID)
		assert.Empty(t, p.Discussing())
	})

	t.Run("single active discussion", func(t *testing.T) {
		h.must(alice, "start_discussion", m{"topic_id": "A"})
		h.must(alice, "start_discussion", m{"topic_id": "B"})

		var p LeanCoffee
		h.decode(&p)
		assert.Equal(t, TopicDiscussed, p.Topics[0].Status)
		assert.Equal(t, TopicDiscussing, p.Topics[1].Status)
		assert.Equal(t, []string{"B"}, p.Discussing())
		assert.Equal(t, "B", p.CurrentTopicID)
	})

	t.Run("vote budget", func(t *testing.T) {
		h.must(bob, "add_topic", m{"id": "C", "title": "Tooling"})
		h.must(bob, "add_topic", m{"id": "D", "title": "Offsite"})
		h.must(bob, "add_topic", m{"id": "E", "title": "Budget"})

		assert.ErrorIs(t, h.do(bob, "vote", m{"topic_id": "A"}), activity.ErrInvalidInput, "discussed topics take no votes")
		h.must(bob, "vote", m{"topic_id": "C"})
		assert.ErrorIs(t, h.do(bob, "vote", m{"topic_id": "C"}), activity.ErrInvalidInput)
		h.must(bob, "vote", m{"topic_id": "D"})
		h.must(bob, "vote", m{"topic_id": "E"})
		assert.ErrorIs(t, h.do(bob, "vote", m{"topic_id": "B"}), activity.ErrLimitExceeded)

		h.must(bob, "unvote", m{"topic_id": "E"})
		h.must(bob, "vote", m{"topic_id": "B"})

		var p LeanCoffee
		h.decode(&p)
		assert.Equal(t, 1, p.Topics[1].Votes)
	})

	t.Run("close clears only the current topic pointer", func(t *testing.T) {
		h.must(alice, CloseAction, nil)
		var p LeanCoffee
		h.decode(&p)
		assert.Empty(t, p.CurrentTopicID)
		assert.Equal(t, TopicDiscussing, p.Topics[1].Status)
	})
}

func TestRiskMatrixScore(t *testing.T) {
	h := newHarness(t, activity.TypeRiskMatrix, nil)
	h.must(bob, "add_risk", m{"id": "r1", "title": "Vendor lock-in", "probability": 3, "impact": 4})

	var p RiskMatrix
	h.decode(&p)
	assert.Equal(t, 12, p.Risks[0].Score)

	h.must(bob, "update_risk", m{"id": "r1", "impact": 5})
	h.decode(&p)
	assert.Equal(t, 15, p.Risks[0].Score)

	h.must(bob, "update_risk", m{"id": "r1", "probability": 1})
	h.decode(&p)
	for _, r := range p.Risks {
		assert.Equal(t, r.Probability*r.Impact, r.Score)
	}

	assert.ErrorIs(t, h.do(bob, "add_risk", m{"title": "x", "probability": 0, "impact": 3}), activity.ErrInvalidInput)
	assert.ErrorIs(t, h.do(bob, "add_risk", m{"title": "x", "probability": 3, "impact": 6}), activity.ErrInvalidInput)
}

func TestDACI(t *testing.T) {
	h := newHarness(t, activity.TypeDACI, m{"title": "Pick a database"})

	assert.ErrorIs(t, h.do(alice, "request_approval", nil), activity.ErrInvalidInput, "needs an approver")

	h.must(alice, "assign_role", m{"actor_id": "bob", "actor_name": "Bob", "role": RoleApprover})
	h.must(alice, "assign_role", m{"actor_id": "carol", "role": RoleDriver})
	assert.ErrorIs(t, h.do(alice, "assign_role", m{"actor_id": "bob", "role": RoleInformed}), activity.ErrInvalidInput, "one role per actor")
	assert.ErrorIs(t, h.do(alice, "assign_role", m{"actor_id": "dave", "role": RoleDriver}), activity.ErrLimitExceeded)
	assert.ErrorIs(t, h.do(alice, "assign_role", m{"actor_id": "dave", "role": "boss"}), activity.ErrInvalidInput)

	assert.ErrorIs(t, h.do(bob, "approve", nil), activity.ErrForbidden, "approval needs the pending phase")

	assert.ErrorIs(t, h.do(bob, "set_details", m{"details": "x"}), activity.ErrForbidden)
	assert.ErrorIs(t, h.do(alice, "set_details", m{"title": "  "}), activity.ErrInvalidInput)
	h.must(alice, "set_details", m{"details": "Postgres or SQLite"})
	h.must(alice, "assign_role", m{"actor_id": "dave", "role": RoleInformed})
	assert.ErrorIs(t, h.do(bob, "unassign_role", m{"actor_id": "dave"}), activity.ErrForbidden)
	h.must(alice, "unassign_role", m{"actor_id": "dave"})
	assert.ErrorIs(t, h.do(alice, "unassign_role", m{"actor_id": "dave"}), activity.ErrInvalidInput, "dave holds no role")

	var draft DACI
	h.decode(&draft)
	assert.Equal(t, "Pick a database", draft.Title, "omitted fields are left alone")
	assert.Equal(t, "Postgres or SQLite", draft.Details)
	assert.Empty(t, draft.RoleOf("dave"))
	assert.Len(t, draft.Roles, 2)

	h.must(alice, "request_approval", nil)
	assert.ErrorIs(t, h.do(alice, "assign_role", m{"actor_id": "erin", "role": RoleInformed}), activity.ErrInvalidInput, "roles freeze after draft")
	assert.ErrorIs(t, h.do(alice, "unassign_role", m{"actor_id": "carol"}), activity.ErrInvalidInput)
	assert.ErrorIs(t, h.do(alice, "set_details", m{"title": "Pick a queue"}), activity.ErrInvalidInput)

	assert.ErrorIs(t, h.do(carol, "approve", nil), activity.ErrForbidden)
	assert.ErrorIs(t, h.do(admin, "approve", nil), activity.ErrForbidden, "admins do not hold roles")

	h.must(bob, "approve", m{"note": "lgtm"})
	var p DACI
	h.decode(&p)
	assert.Equal(t, DACIApproved, p.Status)
	assert.Equal(t, "bob", p.DecidedBy)

	assert.ErrorIs(t, h.do(bob, "reject", nil), activity.ErrForbidden, "decision is final")
}

func TestRomanVoting(t *testing.T) {
	h := newHarness(t, activity.TypeRomanVoting, m{"question": "Friday release?"})
	h.must(bob, "vote", m{"choice": ThumbUp})
	h.must(carol, "vote", m{"choice": ThumbUp})
	h.must(bob, "vote", m{"choice": ThumbDown})

	var p RomanVoting
	h.decode(&p)
	assert.Equal(t, map[string]int{ThumbUp: 1, ThumbDown: 1, ThumbSideways: 0}, p.Tally)

	h.must(carol, "retract_vote", nil)
	assert.ErrorIs(t, h.do(carol, "retract_vote", nil), activity.ErrInvalidInput)
	assert.ErrorIs(t, h.do(carol, "vote", m{"choice": "maybe"}), activity.ErrInvalidInput)
}

func TestFiveWhys(t *testing.T) {
	h := newHarness(t, activity.TypeFiveWhys, m{"problem": "Deploy failed"})
	for i := 1; i <= 5; i++ {
		h.must(bob, "add_why", m{"id": fmt.Sprintf("w%d", i), "text": fmt.Sprintf("because %d", i)})
	}
	assert.ErrorIs(t, h.do(bob, "add_why", m{"text": "because 6"}), activity.ErrLimitExceeded)

	h.must(bob, "delete_why", m{"id": "w2"})
	var p FiveWhys
	h.decode(&p)
	require.Len(t, p.Whys, 4)
	for i, w := range p.Whys {
		assert.Equal(t, i+1, w.Level)
	}

	assert.ErrorIs(t, h.do(bob, "set_root_cause", m{"text": "no canary"}), activity.ErrForbidden)
	h.must(alice, "set_root_cause", m{"text": "no canary"})
}

func TestTreeCascade(t *testing.T) {
	h := newHarness(t, activity.TypeOpportunityTree, nil)
	h.must(alice, "add_node", m{"id": "outcome", "text": "Retention +5%"})
	h.must(bob, "add_node", m{"id": "opp1", "parent_id": "outcome", "text": "Onboarding is confusing"})
	h.must(bob, "add_node", m{"id": "opp2", "parent_id": "outcome", "text": "Pricing unclear"})
	h.must(carol, "add_node", m{"id": "sol1", "parent_id": "opp1", "text": "Guided tour"})
	h.must(carol, "add_node", m{"id": "exp1", "parent_id": "sol1", "text": "A/B test tour"})

	var p Tree
	h.decode(&p)
	kinds := map[string]string{}
	for _, n := range p.Nodes {
		kinds[n.ID] = n.Kind
	}
	assert.Equal(t, map[string]string{
		"outcome": "outcome", "opp1": "opportunity", "opp2": "opportunity",
		"sol1": "solution", "exp1": "experiment",
	}, kinds)

	assert.ErrorIs(t, h.do(carol, "add_node", m{"parent_id": "exp1", "text": "too deep"}), activity.ErrLimitExceeded)
	assert.ErrorIs(t, h.do(bob, "add_node", m{"text": "second outcome"}), activity.ErrLimitExceeded)
	assert.ErrorIs(t, h.do(bob, "add_node", m{"parent_id": "ghost", "text": "orphan"}), activity.ErrInvalidInput)

	h.must(bob, "delete_node", m{"id": "opp1"})
	h.decode(&p)
	ids := map[string]bool{}
	for _, n := range p.Nodes {
		ids[n.ID] = true
	}
	assert.Equal(t, map[string]bool{"outcome": true, "opp2": true}, ids)
	for _, n := range p.Nodes {
		if n.ParentID != "" {
			assert.True(t, ids[n.ParentID], "node %s is orphaned", n.ID)
		}
	}
}

func TestSubtreeHandlesDeepTrees(t *testing.T) {
	nodes := make([]Node, 0, 10000)
	for i := 0; i < 10000; i++ {
		parent := ""
		if i > 0 {
			parent = fmt.Sprintf("n%d", i-1)
		}
		nodes = append(nodes, Node{Entry: Entry{ID: fmt.Sprintf("n%d", i)}, ParentID: parent})
	}
	kept, removed := removeSubtree(nodes, "n1")
	assert.Equal(t, 9999, removed)
	require.Len(t, kept, 1)
	assert.Equal(t, "n0", kept[0].ID)
	assert.Equal(t, 9999, depth(nodes, "n9999"))
}

func TestFuturesWheelDepth(t *testing.T) {
	h := newHarness(t, activity.TypeFuturesWheel, m{"event": "Remote-first policy"})
	h.must(bob, "add_node", m{"id": "a", "text": "Less commuting"})
	h.must(bob, "add_node", m{"id": "b", "parent_id": "a", "text": "More free time"})
	h.must(bob, "add_node", m{"id": "c", "parent_id": "b", "text": "More hobbies"})
	assert.ErrorIs(t, h.do(bob, "add_node", m{"parent_id": "c", "text": "fourth ring"}), activity.ErrLimitExceeded)

	var p Tree
	h.decode(&p)
	assert.Equal(t, "Remote-first policy", p.Center)
	assert.Equal(t, "third_order", p.Nodes[2].Kind)
}

func TestImpactMapping(t *testing.T) {
	h := newHarness(t, activity.TypeImpactMapping, nil)
	h.must(alice, "add_node", m{"id": "g", "text": "1M users"})
	h.must(bob, "add_node", m{"id": "a", "parent_id": "g", "text": "Students"})
	h.must(bob, "edit_node", m{"id": "a", "text": "University students"})
	assert.ErrorIs(t, h.do(carol, "edit_node", m{"id": "a", "text": "x"}), activity.ErrForbidden)

	h.must(alice, "delete_node", m{"id": "g"})
	var p Tree
	h.decode(&p)
	assert.Empty(t, p.Nodes)
}

func TestJTBDCanvas(t *testing.T) {
	h := newHarness(t, activity.TypeJTBDCanvas, nil)
	assert.ErrorIs(t, h.do(bob, "set_job", m{"job": "x"}), activity.ErrForbidden)
	h.must(alice, "set_job", m{"job": "Get paid faster"})
	h.must(bob, "add_card", m{"id": "c1", "section": "pains", "text": "Chasing invoices"})
	assert.ErrorIs(t, h.do(bob, "add_card", m{"section": "feelings", "text": "x"}), activity.ErrInvalidInput)
	h.must(bob, "edit_card", m{"id": "c1", "section": "gains", "text": "Paid on time"})

	var p JTBDCanvas
	h.decode(&p)
	assert.Equal(t, "Get paid faster", p.Job)
	assert.Equal(t, "gains", p.Cards[0].Section)
	h.must(bob, "delete_card", m{"id": "c1"})
}

func TestKanoModel(t *testing.T) {
	assert.Equal(t, KanoMustBe, KanoCategory(KanoExpect, KanoDislike))
	assert.Equal(t, KanoPerformance, KanoCategory(KanoLike, KanoDislike))
	assert.Equal(t, KanoAttractive, KanoCategory(KanoLike, KanoNeutral))
	assert.Equal(t, KanoIndifferent, KanoCategory(KanoNeutral, KanoNeutral))
	assert.Equal(t, KanoReverse, KanoCategory(KanoDislike, KanoLike))
	assert.Equal(t, KanoQuestionable, KanoCategory(KanoLike, KanoLike))

	h := newHarness(t, activity.TypeKanoModel, nil)
	h.must(bob, "add_feature", m{"id": "f1", "name": "Dark mode"})
	h.must(bob, "respond", m{"feature_id": "f1", "functional": KanoLike, "dysfunctional": KanoNeutral})
	h.must(carol, "respond", m{"feature_id": "f1", "functional": KanoExpect, "dysfunctional": KanoDislike})

	var p KanoModel
	h.decode(&p)
	assert.Equal(t, KanoMustBe, p.Features[0].Category, "ties go to must-be")

	h.must(carol, "respond", m{"feature_id": "f1", "functional": KanoLike, "dysfunctional": KanoTolerate})
	h.decode(&p)
	assert.Len(t, p.Features[0].Responses, 2, "responses overwrite per actor")
	assert.Equal(t, KanoAttractive, p.Features[0].Category)

	assert.ErrorIs(t, h.do(bob, "respond", m{"feature_id": "f1", "functional": "love", "dysfunctional": KanoLike}), activity.ErrInvalidInput)
}

func TestHopesFears(t *testing.T) {
	h := newHarness(t, activity.TypeHopesFears, nil)
	h.must(bob, "add_item", m{"id": "h1", "kind": "hope", "text": "Ship by June"})
	assert.ErrorIs(t, h.do(bob, "add_item", m{"kind": "dream", "text": "x"}), activity.ErrInvalidInput)

	h.must(carol, "vote", m{"id": "h1"})
	var p HopesFears
	h.decode(&p)
	assert.Equal(t, []string{"carol"}, p.Items[0].VoterIDs)

	h.must(carol, "vote", m{"id": "h1"})
	h.decode(&p)
	assert.Empty(t, p.Items[0].VoterIDs, "vote toggles")
}

func TestLotusBlossom(t *testing.T) {
	h := newHarness(t, activity.TypeLotusBlossom, m{"theme": "Team health"})
	for i := 0; i < 8; i++ {
		h.must(bob, "add_petal", m{"id": fmt.Sprintf("p%d", i), "text": fmt.Sprintf("petal %d", i)})
	}
	assert.ErrorIs(t, h.do(bob, "add_petal", m{"text": "ninth"}), activity.ErrLimitExceeded)

	for i := 0; i < 8; i++ {
		h.must(carol, "add_idea", m{"petal_id": "p0", "text": fmt.Sprintf("idea %d", i)})
	}
	assert.ErrorIs(t, h.do(carol, "add_idea", m{"petal_id": "p0", "text": "ninth"}), activity.ErrLimitExceeded)
	h.must(carol, "add_idea", m{"petal_id": "p1", "text": "elsewhere"})

	h.must(bob, "delete_petal", m{"id": "p0"})
	var p LotusBlossom
	h.decode(&p)
	assert.Len(t, p.Petals, 7)
	require.Len(t, p.Ideas, 1)
	assert.Equal(t, "p1", p.Ideas[0].PetalID)
}

func TestLightningDemos(t *testing.T) {
	h := newHarness(t, activity.TypeLightningDemos, nil)
	assert.ErrorIs(t, h.do(bob, "add_demo", m{"title": "x", "url": "ftp://example.com"}), activity.ErrInvalidInput)
	assert.ErrorIs(t, h.do(bob, "add_demo", m{"title": "x", "url": "example.com"}), activity.ErrInvalidInput)
	h.must(bob, "add_demo", m{"id": "d1", "title": "Figma", "url": "https://figma.com"})

	assert.ErrorIs(t, h.do(bob, "present", m{"id": "d1"}), activity.ErrForbidden)
	h.must(alice, "present", m{"id": "d1"})
	h.must(bob, "delete_demo", m{"id": "d1"})

	var p LightningDemos
	h.decode(&p)
	assert.Empty(t, p.PresentingID)
}

func TestOpenSpace(t *testing.T) {
	h := newHarness(t, activity.TypeOpenSpace, m{"slots": []string{"10:00", "11:00"}, "rooms": []string{"Red", "Blue"}})
	h.must(bob, "propose", m{"id": "s1", "title": "Rust at work"})
	h.must(carol, "propose", m{"id": "s2", "title": "Hiring juniors"})

	h.must(alice, "schedule", m{"id": "s1", "slot": "10:00", "room": "Red"})
	assert.ErrorIs(t, h.do(alice, "schedule", m{"id": "s2", "slot": "10:00", "room": "Red"}), activity.ErrInvalidInput, "double booking")
	assert.ErrorIs(t, h.do(alice, "schedule", m{"id": "s2", "slot": "12:00", "room": "Red"}), activity.ErrInvalidInput)
	h.must(alice, "schedule", m{"id": "s2", "slot": "10:00", "room": "Blue"})
	h.must(alice, "schedule", m{"id": "s1", "slot": "10:00", "room": "Red"})

	h.must(carol, "attend", m{"id": "s1"})
	assert.ErrorIs(t, h.do(carol, "withdraw", m{"id": "s1"}), activity.ErrForbidden)
	h.must(bob, "withdraw", m{"id": "s1"})
}

func TestReframingBoard(t *testing.T) {
	h := newHarness(t, activity.TypeReframingBoard, m{"problem": "Meetings run long"})
	h.must(bob, "add_reframe", m{"id": "r1", "lens": "opposite", "text": "How might meetings end early?"})
	assert.ErrorIs(t, h.do(bob, "add_reframe", m{"lens": "vibes", "text": "x"}), activity.ErrInvalidInput)
	h.must(carol, "vote", m{"id": "r1"})
	h.must(alice, "select", m{"id": "r1"})

	var p ReframingBoard
	h.decode(&p)
	assert.Equal(t, "r1", p.SelectedID)
	assert.Equal(t, []string{"carol"}, p.Reframes[0].VoterIDs)
}

func TestActionItems(t *testing.T) {
	h := newHarness(t, activity.TypeActionItems, nil)
	assert.ErrorIs(t, h.do(bob, "add_item", m{"text": "x", "due_date": "31/05/2024"}), activity.ErrInvalidInput)
	h.must(bob, "add_item", m{"id": "a1", "text": "Write RFC", "due_date": "2024-05-31"})

	assert.ErrorIs(t, h.do(carol, "complete", m{"id": "a1"}), activity.ErrForbidden)
	h.must(bob, "assign", m{"id": "a1", "assignee_id": "carol", "assignee_name": "Carol"})
	assert.ErrorIs(t, h.do(carol, "assign", m{"id": "a1", "assignee_id": "dave"}), activity.ErrForbidden, "assignees cannot reassign")
	h.must(carol, "complete", m{"id": "a1"})
	assert.ErrorIs(t, h.do(bob, "complete", m{"id": "a1"}), activity.ErrInvalidInput)

	var p ActionItems
	h.decode(&p)
	assert.True(t, p.Items[0].Done)
	assert.Equal(t, "carol", p.Items[0].AssigneeID)
	assert.Equal(t, "carol", p.Items[0].CompletedBy)

	h.must(carol, "reopen_item", m{"id": "a1"})
	assert.ErrorIs(t, h.do(alice, "complete", m{"id": "a1"}), activity.ErrForbidden, "the session creator is neither owner nor assignee")
	h.must(bob, "complete", m{"id": "a1"})
	h.must(bob, "reopen_item", m{"id": "a1"})
	assert.ErrorIs(t, h.do(carol, "delete_item", m{"id": "a1"}), activity.ErrForbidden)
	h.must(admin, "delete_item", m{"id": "a1"})
}

func TestParkingLot(t *testing.T) {
	h := newHarness(t, activity.TypeParkingLot, nil)
	h.must(bob, "add_item", m{"id": "p1", "text": "Budget"})
	h.must(carol, "add_item", m{"id": "p2", "text": "Hiring"})
	assert.ErrorIs(t, h.do(bob, "add_item", m{"text": " "}), activity.ErrInvalidInput)

	t.Run("replayed id", func(t *testing.T) {
		h.must(bob, "add_item", m{"id": "p1", "text": "Budget"})
		assert.ErrorIs(t, h.do(carol, "add_item", m{"id": "p1", "text": "Other"}), activity.ErrInvalidInput)
		var p ParkingLot
		h.decode(&p)
		assert.Len(t, p.Items, 2)
	})

	t.Run("edit is owner or admin", func(t *testing.T) {
		assert.ErrorIs(t, h.do(carol, "edit_item", m{"id": "p1", "text": "Mine now"}), activity.ErrForbidden)
		assert.ErrorIs(t, h.do(bob, "edit_item", m{"id": "nope", "text": "x"}), activity.ErrInvalidInput)
		assert.ErrorIs(t, h.do(bob, "edit_item", m{"id": "p1", "text": ""}), activity.ErrInvalidInput)
		h.must(bob, "edit_item", m{"id": "p1", "text": "Budget 2025"})
		h.must(admin, "edit_item", m{"id": "p2", "text": "Hiring plan"})

		var p ParkingLot
		h.decode(&p)
		assert.Equal(t, "Budget 2025", p.Items[0].Text)
		assert.Equal(t, "Hiring plan", p.Items[1].Text)
		assert.Equal(t, "carol", p.Items[1].AuthorID)
	})

	t.Run("resolve is creator only", func(t *testing.T) {
		assert.ErrorIs(t, h.do(bob, "resolve_item", m{"id": "p1"}), activity.ErrForbidden, "authors cannot resolve their own items")
		assert.ErrorIs(t, h.do(alice, "resolve_item", m{"id": "zz"}), activity.ErrInvalidInput)
		h.must(alice, "resolve_item", m{"id": "p1"})
		assert.ErrorIs(t, h.do(alice, "resolve_item", m{"id": "p1"}), activity.ErrInvalidInput, "already resolved")
		h.must(admin, "resolve_item", m{"id": "p2"})

		var p ParkingLot
		h.decode(&p)
		assert.True(t, p.Items[0].Resolved)
		assert.Equal(t, "alice", p.Items[0].ResolvedBy)
		assert.Equal(t, testNow.UnixMilli(), p.Items[0].ResolvedAtMs)
		assert.Equal(t, "root", p.Items[1].ResolvedBy)
	})

	t.Run("delete", func(t *testing.T) {
		assert.ErrorIs(t, h.do(bob, "delete_item", m{"id": "p2"}), activity.ErrForbidden)
		h.must(carol, "delete_item", m{"id": "p2"})
		var p ParkingLot
		h.decode(&p)
		require.Len(t, p.Items, 1)
		assert.Equal(t, "p1", p.Items[0].ID)
	})
}

func TestVAKOGBoard(t *testing.T) {
	h := newHarness(t, activity.TypeVAKOGBoard, nil)

	for i, sense := range VAKOGSenses {
		h.must(bob, "add_note", m{"id": fmt.Sprintf("n%d", i), "sense": sense, "text": "noticed " + sense})
	}
	for _, sense := range []string{"", "smell", "Visual"} {
		assert.ErrorIs(t, h.do(bob, "add_note", m{"sense": sense, "text": "x"}), activity.ErrInvalidInput, "sense %q", sense)
	}

	assert.ErrorIs(t, h.do(bob, "edit_note", m{"id": "n0", "sense": "tactile", "text": "x"}), activity.ErrInvalidInput)
	h.must(bob, "edit_note", m{"id": "n0", "sense": "auditory", "text": "humming lights"})
	h.must(bob, "edit_note", m{"id": "n0", "text": "buzzing lights"})
	assert.ErrorIs(t, h.do(carol, "edit_note", m{"id": "n0", "text": "mine"}), activity.ErrForbidden)

	var p VAKOGBoard
	h.decode(&p)
	require.Len(t, p.Notes, len(VAKOGSenses))
	assert.Equal(t, "auditory", p.Notes[0].Sense, "an omitted sense keeps the old one")
	assert.Equal(t, "buzzing lights", p.Notes[0].Text)

	assert.ErrorIs(t, h.do(carol, "delete_note", m{"id": "n1"}), activity.ErrForbidden)
	h.must(admin, "delete_note", m{"id": "n1"})
	h.decode(&p)
	assert.Len(t, p.Notes, len(VAKOGSenses)-1)
}
