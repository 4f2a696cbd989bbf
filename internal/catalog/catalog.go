// Package catalog holds the static content the engine selects from:
// missions, recommendations and resources. Catalogs are replaced
// wholesale when the orchestrator pushes a new version.
package catalog

import (
	"strings"
	"sync"
)

type Mission struct {
	ID              string
	WeeklyFrequency float64
	Pillar          string
}

// Item describes a recommendation or a resource. Types carries the
// intervention-type tags used for the feature mixture.
type Item struct {
	ID       string
	Types    []string
	Pillar   string
	Missions []string
}

// PillarForID derives the health pillar from the item-id prefix. An
// unrecognized prefix yields "" and downstream encoders fall back to
// the zero vector.
func PillarForID(id string) string {
	switch {
	case strings.HasPrefix(id, "A"):
		return "alcohol"
	case strings.HasPrefix(id, "N"):
		return "nutrition"
	case strings.HasPrefix(id, "P"):
		return "physical_activity"
	case strings.HasPrefix(id, "S"):
		return "smoking"
	case strings.HasPrefix(id, "E"):
		return "emotional_wellbeing"
	}
	return ""
}

type Catalog struct {
	mu              sync.RWMutex
	missions        map[string]Mission
	recommendations map[string]Item
	resources       map[string]Item
}

func New() *Catalog {
	return &Catalog{
		missions:        map[string]Mission{},
		recommendations: map[string]Item{},
		resources:       map[string]Item{},
	}
}

func (c *Catalog) SetMissions(missions []Mission) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.missions = make(map[string]Mission, len(missions))
	for _, m := range missions {
		c.missions[m.ID] = m
	}
}

func (c *Catalog) SetRecommendations(items []Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recommendations = indexItems(items)
}

func (c *Catalog) SetResources(items []Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resources = indexItems(items)
}

func indexItems(items []Item) map[string]Item {
	out := make(map[string]Item, len(items))
	for _, it := range items {
		if it.Pillar == "" {
			it.Pillar = PillarForID(it.ID)
		}
		out[it.ID] = it
	}
	return out
}

func (c *Catalog) Mission(id string) (Mission, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.missions[id]
	return m, ok
}

func (c *Catalog) Recommendation(id string) (Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	it, ok := c.recommendations[id]
	return it, ok
}

func (c *Catalog) Resource(id string) (Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	it, ok := c.resources[id]
	return it, ok
}

func (c *Catalog) HasMission(id string) bool {
	_, ok := c.Mission(id)
	return ok
}

func (c *Catalog) HasRecommendation(id string) bool {
	_, ok := c.Recommendation(id)
	return ok
}

func (c *Catalog) HasResource(id string) bool {
	_, ok := c.Resource(id)
	return ok
}
