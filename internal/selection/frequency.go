package selection

import (
	"github.com/yungbote/contentselect/internal/catalog"
	"github.com/yungbote/contentselect/internal/config"
	"github.com/yungbote/contentselect/internal/features"
)

// slateState is the in-flight frequency bookkeeping for one slate
// generation (or its offline replay): what this plan has already
// scheduled, before anything is delivered.
type slateState struct {
	offsets       features.Offsets
	selectedCount map[string]map[string]int // missionID -> itemID -> count
}

func newSlateState() *slateState {
	return &slateState{
		offsets:       features.NewOffsets(),
		selectedCount: map[string]map[string]int{},
	}
}

// applySelection counts a pick into the offsets and enforces the
// repetition caps on the availability pools: an item at the same-item
// cap leaves its pool, and once the distinct cap is reached the pool
// shrinks to the items already used.
func applySelection(st *slateState, cfg *config.Config, cat *catalog.Catalog, missionID, itemID string, avail map[string][]string) {
	counts := st.selectedCount[missionID]
	if counts == nil {
		counts = map[string]int{}
		st.selectedCount[missionID] = counts
	}
	counts[itemID]++

	st.offsets.Total++

	var itemTypes []string
	if it, ok := cat.Recommendation(itemID); ok {
		itemTypes = it.Types
	}
	mix := features.TypeMixture(itemTypes)
	for i, t := range features.InterventionTypes {
		if mix[i] != 0 {
			st.offsets.PerType[t] += mix[i]
		}
	}
	st.offsets.PerItem[itemID]++

	if counts[itemID] >= cfg.MaxSamePerMission {
		avail[missionID] = remove(avail[missionID], itemID)
	}
	if len(counts) >= cfg.MaxDistinctPerMission {
		var kept []string
		for _, id := range avail[missionID] {
			if counts[id] > 0 {
				kept = append(kept, id)
			}
		}
		avail[missionID] = kept
	}
}
