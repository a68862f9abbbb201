package variant

import (
	"net/url"
	"strings"

	"github.com/dyluth/huddle/internal/authz"
	"github.com/dyluth/huddle/pkg/activity"
)

// LightningDemos collects short inspiration demos and picks which to show.
type LightningDemos struct {
	Demos        []Demo `json:"demos"`
	PresentingID string `json:"presenting_id,omitempty"`
}

// Demo is one proposed demo with a link to it.
type Demo struct {
	Entry
	Title    string   `json:"title"`
	URL      string   `json:"url"`
	Notes    string   `json:"notes,omitempty"`
	VoterIDs []string `json:"voter_ids"`
}

type addDemoInput struct {
	ID    string `json:"id,omitempty"`
	Title string `json:"title"`
	URL   string `json:"url"`
	Notes string `json:"notes,omitempty"`
}

func (in addDemoInput) Validate() error {
	u, err := url.Parse(strings.TrimSpace(in.URL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return activity.InvalidField("url", "must be an absolute http(s) URL")
	}
	return nil
}

func lightningDemosSpec() *Spec[LightningDemos] {
	add := Do("add_demo", authz.Open, func(p *LightningDemos, c *Call, in addDemoInput) error {
		title, err := c.Text("title", in.Title, true)
		if err != nil {
			return err
		}
		link, err := c.Text("url", in.URL, true)
		if err != nil {
			return err
		}
		notes, err := c.Text("notes", in.Notes, false)
		if err != nil {
			return err
		}
		entry, replay, err := newEntry(c, p.Demos, "demos", in.ID)
		if err != nil || replay {
			return err
		}
		p.Demos = append(p.Demos, Demo{Entry: entry, Title: title, URL: link, Notes: notes, VoterIDs: []string{}})
		return nil
	})

	vote := Do("vote", authz.Open, func(p *LightningDemos, c *Call, in idInput) error {
		i, err := mustFind(p.Demos, "id", in.ID)
		if err != nil {
			return err
		}
		p.Demos[i].VoterIDs, _ = toggle(p.Demos[i].VoterIDs, c.Actor.ID)
		return nil
	})

	del := Do("delete_demo", authz.OwnerOrAdmin, func(p *LightningDemos, c *Call, in idInput) error {
		p.Demos = removeAt(p.Demos, indexOf(p.Demos, in.ID))
		if p.PresentingID == in.ID {
			p.PresentingID = ""
		}
		return nil
	}).OwnedBy(func(p *LightningDemos, id string) (string, bool) { return authorOf(p.Demos, id) })

	present := Do("present", authz.CreatorOnly, func(p *LightningDemos, c *Call, in idInput) error {
		if _, err := mustFind(p.Demos, "id", in.ID); err != nil {
			return err
		}
		p.PresentingID = in.ID
		return nil
	})

	return Define(activity.TypeLightningDemos, add, vote, del, present)
}
