package variant

import (
	"github.com/dyluth/huddle/internal/authz"
	"github.com/dyluth/huddle/pkg/activity"
)

// Topic statuses.
const (
	TopicToDiscuss  = "to_discuss"
	TopicDiscussing = "discussing"
	TopicDiscussed  = "discussed"
)

const leanCoffeeVotesPerActor = 3

// LeanCoffee is a democratic agenda: participants add and vote on topics,
// the creator walks through them one at a time.
type LeanCoffee struct {
	Topics         []Topic `json:"topics"`
	CurrentTopicID string  `json:"current_topic_id,omitempty"`
}

// Topic is one agenda item. Votes is derived from VoterIDs.
type Topic struct {
	Entry
	Title    string   `json:"title"`
	Status   string   `json:"status"`
	VoterIDs []string `json:"voter_ids"`
	Votes    int      `json:"votes"`
}

func (p *LeanCoffee) votesBy(actorID string) int {
	n := 0
	for _, t := range p.Topics {
		if contains(t.VoterIDs, actorID) {
			n++
		}
	}
	return n
}

// Discussing returns the ids of every topic in discussion.
func (p *LeanCoffee) Discussing() []string {
	var ids []string
	for _, t := range p.Topics {
		if t.Status == TopicDiscussing {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

type addTopicInput struct {
	ID    string `json:"id,omitempty"`
	Title string `json:"title"`
}

type topicInput struct {
	TopicID string `json:"topic_id"`
}

func (in topicInput) Target() string { return in.TopicID }

func leanCoffeeSpec() *Spec[LeanCoffee] {
	addTopic := Do("add_topic", authz.Open, func(p *LeanCoffee, c *Call, in addTopicInput) error {
		if in.ID != "" && indexOf(p.Topics, in.ID) >= 0 {
			_, _, err := newEntry(c, p.Topics, "topics", in.ID)
			return err
		}
		title, err := c.Text("title", in.Title, true)
		if err != nil {
			return err
		}
		entry, _, err := newEntry(c, p.Topics, "topics", in.ID)
		if err != nil {
			return err
		}
		p.Topics = append(p.Topics, Topic{Entry: entry, Title: title, Status: TopicToDiscuss, VoterIDs: []string{}})
		return nil
	})

	vote := Do("vote", authz.Open, func(p *LeanCoffee, c *Call, in topicInput) error {
		i, err := mustFind(p.Topics, "topic_id", in.TopicID)
		if err != nil {
			return err
		}
		t := &p.Topics[i]
		if t.Status == TopicDiscussed {
			return activity.InvalidField("topic_id", "topic has already been discussed")
		}
		if contains(t.VoterIDs, c.Actor.ID) {
			return activity.InvalidField("topic_id", "already voted for this topic")
		}
		if p.votesBy(c.Actor.ID) >= leanCoffeeVotesPerActor {
			return activity.LimitExceeded("each participant has %d votes", leanCoffeeVotesPerActor)
		}
		t.VoterIDs = append(t.VoterIDs, c.Actor.ID)
		t.Votes = len(t.VoterIDs)
		return nil
	})

	unvote := Do("unvote", authz.Open, func(p *LeanCoffee, c *Call, in topicInput) error {
		i, err := mustFind(p.Topics, "topic_id", in.TopicID)
		if err != nil {
			return err
		}
		t := &p.Topics[i]
		if !contains(t.VoterIDs, c.Actor.ID) {
			return activity.InvalidField("topic_id", "no vote to remove")
		}
		t.VoterIDs, _ = toggle(t.VoterIDs, c.Actor.ID)
		t.Votes = len(t.VoterIDs)
		return nil
	})

	start := Do("start_discussion", authz.CreatorOnly, func(p *LeanCoffee, c *Call, in topicInput) error {
		i, err := mustFind(p.Topics, "topic_id", in.TopicID)
		if err != nil {
			return err
		}
		for j := range p.Topics {
			if j != i && p.Topics[j].Status == TopicDiscussing {
				p.Topics[j].Status = TopicDiscussed
			}
		}
		p.Topics[i].Status = TopicDiscussing
		p.CurrentTopicID = p.Topics[i].ID
		return nil
	})

	finish := Do("finish_discussion", authz.CreatorOnly, func(p *LeanCoffee, c *Call, _ struct{}) error {
		if p.CurrentTopicID == "" {
			return activity.InvalidField("current_topic_id", "no topic is being discussed")
		}
		if i := indexOf(p.Topics, p.CurrentTopicID); i >= 0 {
			p.Topics[i].Status = TopicDiscussed
		}
		p.CurrentTopicID = ""
		return nil
	})

	deleteTopic := Do("delete_topic", authz.OwnerOrAdmin, func(p *LeanCoffee, c *Call, in topicInput) error {
		p.Topics = removeAt(p.Topics, indexOf(p.Topics, in.TopicID))
		if p.CurrentTopicID == in.TopicID {
			p.CurrentTopicID = ""
		}
		return nil
	}).OwnedBy(func(p *LeanCoffee, id string) (string, bool) { return authorOf(p.Topics, id) })

	// Closing drops the pointer to the live topic; statuses stay as they
	// were for the record.
	return Define(activity.TypeLeanCoffee, addTopic, vote, unvote, start, finish, deleteTopic).
		WithCleanup(func(p *LeanCoffee, c *Call) { p.CurrentTopicID = "" })
}
