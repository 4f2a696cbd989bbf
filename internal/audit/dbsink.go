package audit

import (
	"context"
	"sync"
	"time"

	"github.com/yungbote/contentselect/internal/logger"
	"github.com/yungbote/contentselect/internal/repos"
	"github.com/yungbote/contentselect/internal/types"
)

const (
	writeAttempts = 3
	retryBackoff  = 200 * time.Millisecond
)

// DBSink writes audit records through a buffered queue with a single
// worker. A full queue drops the record and logs; audit is best effort.
type DBSink struct {
	repo repos.AuditRepo
	log  *logger.Logger
	jobs chan func(ctx context.Context) error
	wg   sync.WaitGroup
	once sync.Once
}

func NewDBSink(repo repos.AuditRepo, buffer int, log *logger.Logger) *DBSink {
	if buffer <= 0 {
		buffer = 1024
	}
	if log == nil {
		log = logger.NewNop()
	}
	s := &DBSink{
		repo: repo,
		log:  log.With("sink", "DBSink"),
		jobs: make(chan func(ctx context.Context) error, buffer),
	}
	s.wg.Add(1)
	go s.worker()
	return s
}

func (s *DBSink) worker() {
	defer s.wg.Done()
	for job := range s.jobs {
		var err error
		for attempt := 1; attempt <= writeAttempts; attempt++ {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err = job(ctx)
			cancel()
			if err == nil {
				break
			}
			time.Sleep(time.Duration(attempt) * retryBackoff)
		}
		if err != nil {
			s.log.Error("Dropping audit record after retries", "error", err)
		}
	}
}

func (s *DBSink) enqueue(job func(ctx context.Context) error) {
	select {
	case s.jobs <- job:
	default:
		s.log.Warn("Audit queue full, dropping record")
	}
}

func (s *DBSink) Run(run *types.BanditRun) {
	s.enqueue(func(ctx context.Context) error {
		return s.repo.CreateRun(ctx, nil, run)
	})
}

func (s *DBSink) Sample(sample *types.BanditSample) {
	s.enqueue(func(ctx context.Context) error {
		return s.repo.CreateSamples(ctx, nil, []*types.BanditSample{sample})
	})
}

func (s *DBSink) Update(update *types.BanditUpdate) {
	s.enqueue(func(ctx context.Context) error {
		return s.repo.CreateUpdates(ctx, nil, []*types.BanditUpdate{update})
	})
}

func (s *DBSink) Slate(slate *types.SelectedSlate) {
	s.enqueue(func(ctx context.Context) error {
		return s.repo.CreateSlate(ctx, nil, slate)
	})
}

// Close drains the queue and stops the worker.
func (s *DBSink) Close() {
	s.once.Do(func() {
		close(s.jobs)
	})
	s.wg.Wait()
}
