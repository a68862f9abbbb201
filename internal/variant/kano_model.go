package variant

import (
	"github.com/dyluth/huddle/internal/authz"
	"github.com/dyluth/huddle/pkg/activity"
)

// Kano answers to the functional and dysfunctional questions.
const (
	KanoLike     = "like"
	KanoExpect   = "expect"
	KanoNeutral  = "neutral"
	KanoTolerate = "tolerate"
	KanoDislike  = "dislike"
)

// Kano categories.
const (
	KanoMustBe        = "must_be"
	KanoPerformance   = "performance"
	KanoAttractive    = "attractive"
	KanoIndifferent   = "indifferent"
	KanoReverse       = "reverse"
	KanoQuestionable  = "questionable"
	kanoUncategorized = ""
)

var kanoAnswers = []string{KanoLike, KanoExpect, KanoNeutral, KanoTolerate, KanoDislike}

// kanoTable is the standard evaluation table, rows by functional answer,
// columns by dysfunctional answer, both in kanoAnswers order.
var kanoTable = [5][5]string{
	{KanoQuestionable, KanoAttractive, KanoAttractive, KanoAttractive, KanoPerformance},
	{KanoReverse, KanoIndifferent, KanoIndifferent, KanoIndifferent, KanoMustBe},
	{KanoReverse, KanoIndifferent, KanoIndifferent, KanoIndifferent, KanoMustBe},
	{KanoReverse, KanoIndifferent, KanoIndifferent, KanoIndifferent, KanoMustBe},
	{KanoReverse, KanoReverse, KanoReverse, KanoReverse, KanoQuestionable},
}

// kanoPriority breaks ties between equally frequent categories.
var kanoPriority = []string{KanoMustBe, KanoPerformance, KanoAttractive, KanoIndifferent, KanoReverse, KanoQuestionable}

// KanoCategory classifies one functional/dysfunctional answer pair.
func KanoCategory(functional, dysfunctional string) string {
	row, col := -1, -1
	for i, a := range kanoAnswers {
		if a == functional {
			row = i
		}
		if a == dysfunctional {
			col = i
		}
	}
	if row < 0 || col < 0 {
		return kanoUncategorized
	}
	return kanoTable[row][col]
}

// KanoModel surveys features and classifies them by the Kano table.
type KanoModel struct {
	Features []KanoFeature `json:"features"`
}

// KanoFeature is one surveyed feature. Category is the dominant
// classification over all responses.
type KanoFeature struct {
	Entry
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Responses   []KanoResponse `json:"responses"`
	Category    string         `json:"category,omitempty"`
}

// KanoResponse is one participant's answers for a feature.
type KanoResponse struct {
	ActorID       string `json:"actor_id"`
	ActorName     string `json:"actor_name"`
	Functional    string `json:"functional"`
	Dysfunctional string `json:"dysfunctional"`
	Category      string `json:"category"`
}

func (f *KanoFeature) classify() {
	counts := map[string]int{}
	for _, r := range f.Responses {
		counts[r.Category]++
	}
	f.Category = kanoUncategorized
	best := 0
	for _, cat := range kanoPriority {
		if counts[cat] > best {
			best = counts[cat]
			f.Category = cat
		}
	}
}

type addFeatureInput struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type respondInput struct {
	FeatureID     string `json:"feature_id"`
	Functional    string `json:"functional"`
	Dysfunctional string `json:"dysfunctional"`
}

func (in respondInput) Validate() error {
	if err := oneOf("functional", in.Functional, kanoAnswers...); err != nil {
		return err
	}
	return oneOf("dysfunctional", in.Dysfunctional, kanoAnswers...)
}

func kanoModelSpec() *Spec[KanoModel] {
	add := Do("add_feature", authz.Open, func(p *KanoModel, c *Call, in addFeatureInput) error {
		name, err := c.Text("name", in.Name, true)
		if err != nil {
			return err
		}
		desc, err := c.Text("description", in.Description, false)
		if err != nil {
			return err
		}
		entry, replay, err := newEntry(c, p.Features, "features", in.ID)
		if err != nil || replay {
			return err
		}
		p.Features = append(p.Features, KanoFeature{Entry: entry, Name: name, Description: desc, Responses: []KanoResponse{}})
		return nil
	})

	respond := Do("respond", authz.Open, func(p *KanoModel, c *Call, in respondInput) error {
		i, err := mustFind(p.Features, "feature_id", in.FeatureID)
		if err != nil {
			return err
		}
		f := &p.Features[i]
		resp := KanoResponse{
			ActorID:       c.Actor.ID,
			ActorName:     c.Actor.DisplayName(),
			Functional:    in.Functional,
			Dysfunctional: in.Dysfunctional,
			Category:      KanoCategory(in.Functional, in.Dysfunctional),
		}
		replaced := false
		for j := range f.Responses {
			if f.Responses[j].ActorID == c.Actor.ID {
				f.Responses[j] = resp
				replaced = true
				break
			}
		}
		if !replaced {
			if err := c.Room("responses", len(f.Responses)); err != nil {
				return err
			}
			f.Responses = append(f.Responses, resp)
		}
		f.classify()
		return nil
	})

	del := Do("delete_feature", authz.OwnerOrAdmin, func(p *KanoModel, c *Call, in idInput) error {
		p.Features = removeAt(p.Features, indexOf(p.Features, in.ID))
		return nil
	}).OwnedBy(func(p *KanoModel, id string) (string, bool) { return authorOf(p.Features, id) })

	return Define(activity.TypeKanoModel, add, respond, del)
}
