package selection

import (
	"time"

	"github.com/yungbote/contentselect/internal/catalog"
	"github.com/yungbote/contentselect/internal/features"
)

// candidateGroup collects the items that encode to the same feature
// vector. Order follows first appearance in the availability pool so
// the live and replay paths present candidates identically.
type candidateGroup struct {
	Key    string
	Vector []float64
	IDs    []string
}

// buildGroups encodes every available item for a mission against the
// current offsets. The past-week window anchors at selTS, the
// mission's selection time, on both the live and replay paths.
func buildGroups(
	schema *features.Schema,
	u *User,
	cat *catalog.Catalog,
	missionID string,
	avail []string,
	st *slateState,
	selTS time.Time,
	prompted bool,
) []*candidateGroup {
	mission, ok := cat.Mission(missionID)
	if !ok {
		return nil
	}

	uc, win := u.userContext(selTS)

	var groups []*candidateGroup
	index := map[string]*candidateGroup{}
	for _, itemID := range avail {
		item, ok := cat.Recommendation(itemID)
		if !ok {
			continue
		}
		fv := schema.Build(uc, features.ItemContext{
			ID:                     itemID,
			Types:                  item.Types,
			Pillar:                 item.Pillar,
			MissionWeeklyFrequency: mission.WeeklyFrequency,
			TypePast:               u.TypeFrequency(item.Types, win),
			ItemPast:               u.ItemFrequency(itemID, win),
		}, st.offsets, prompted)

		key := features.Key(fv)
		if g, ok := index[key]; ok {
			g.IDs = append(g.IDs, itemID)
			continue
		}
		g := &candidateGroup{Key: key, Vector: fv, IDs: []string{itemID}}
		index[key] = g
		groups = append(groups, g)
	}
	return groups
}

// groupFor finds the group containing itemID, or nil.
func groupFor(groups []*candidateGroup, itemID string) *candidateGroup {
	for _, g := range groups {
		if contains(g.IDs, itemID) {
			return g
		}
	}
	return nil
}
