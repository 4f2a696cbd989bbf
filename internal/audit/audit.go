// Package audit persists the engine's decision trail: policy
// initialisations, posterior draws, reward applications and selected
// slates. Writes are fire-and-forget so a slow database never blocks
// slate generation.
package audit

import (
	"sync"

	"github.com/yungbote/contentselect/internal/types"
)

type Sink interface {
	Run(run *types.BanditRun)
	Sample(sample *types.BanditSample)
	Update(update *types.BanditUpdate)
	Slate(slate *types.SelectedSlate)
}

// NopSink discards everything; the default when no database is wired.
type NopSink struct{}

func (NopSink) Run(*types.BanditRun)       {}
func (NopSink) Sample(*types.BanditSample) {}
func (NopSink) Update(*types.BanditUpdate) {}
func (NopSink) Slate(*types.SelectedSlate) {}

// MemorySink accumulates records in memory for tests and simulations.
type MemorySink struct {
	mu      sync.Mutex
	Runs    []*types.BanditRun
	Samples []*types.BanditSample
	Updates []*types.BanditUpdate
	Slates  []*types.SelectedSlate
}

func NewMemorySink() *MemorySink { return &MemorySink{} }

func (s *MemorySink) Run(run *types.BanditRun) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Runs = append(s.Runs, run)
}

func (s *MemorySink) Sample(sample *types.BanditSample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Samples = append(s.Samples, sample)
}

func (s *MemorySink) Update(update *types.BanditUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Updates = append(s.Updates, update)
}

func (s *MemorySink) Slate(slate *types.SelectedSlate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Slates = append(s.Slates, slate)
}

func (s *MemorySink) UpdateRecords() []*types.BanditUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*types.BanditUpdate{}, s.Updates...)
}
