package selection

import (
	"sort"
	"time"

	"github.com/yungbote/contentselect/internal/features"
)

// window is a half-open interval [Start, End).
type window struct {
	Start time.Time
	End   time.Time
}

func (w *window) contains(ts time.Time) bool {
	if w == nil {
		return true
	}
	return !ts.Before(w.Start) && ts.Before(w.End)
}

type sentEntry struct {
	TS            time.Time
	CorrelationID string
	ItemID        string
	Mix           []float64
	MissionID     string
}

// sentTracker keeps delivered items ordered by time so the frequency
// features and the replay path see an identical history.
type sentTracker struct {
	history []sentEntry
}

func (t *sentTracker) Add(ts time.Time, correlationID, itemID string, itemTypes []string, missionID string) {
	e := sentEntry{
		TS:            ts,
		CorrelationID: correlationID,
		ItemID:        itemID,
		Mix:           features.TypeMixture(itemTypes),
		MissionID:     missionID,
	}
	i := sort.Search(len(t.history), func(i int) bool {
		h := t.history[i]
		if !h.TS.Equal(e.TS) {
			return h.TS.After(e.TS)
		}
		return h.CorrelationID > e.CorrelationID
	})
	t.history = append(t.history, sentEntry{})
	copy(t.history[i+1:], t.history[i:])
	t.history[i] = e
}

// Count of deliveries in the window, optionally for a single item.
func (t *sentTracker) Count(win *window, itemID string) int {
	n := 0
	for _, e := range t.history {
		if !win.contains(e.TS) {
			continue
		}
		if itemID != "" && e.ItemID != itemID {
			continue
		}
		n++
	}
	return n
}

// TypeCounters sums the per-delivery type mixtures over the window.
func (t *sentTracker) TypeCounters(win *window) []float64 {
	counters := make([]float64, len(features.InterventionTypes))
	for _, e := range t.history {
		if !win.contains(e.TS) {
			continue
		}
		for j, w := range e.Mix {
			counters[j] += w
		}
	}
	return counters
}

// MissionSequence lists deliveries for one mission inside the window,
// in send order. Slot indices start at 1.
func (t *sentTracker) MissionSequence(missionID string, win *window) []sentEntry {
	var seq []sentEntry
	for _, e := range t.history {
		if e.MissionID != missionID || !win.contains(e.TS) {
			continue
		}
		seq = append(seq, e)
	}
	return seq
}
