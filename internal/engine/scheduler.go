package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"macroscan/internal/analyzer"
	"macroscan/internal/document"
)

// DocumentLoader reads a planned file. *loader.Loader satisfies it.
type DocumentLoader interface {
	Load(ctx context.Context, path string) (*document.Document, error)
}

// errFailFast stops scheduling after the first unreadable file.
var errFailFast = errors.New("stopped after first failed file")

type Scheduler struct {
	loader      DocumentLoader
	analyzer    *analyzer.Analyzer
	concurrency int
	failFast    bool
}

func NewScheduler(l DocumentLoader, a *analyzer.Analyzer, concurrency int, failFast bool) (*Scheduler, error) {
	if l == nil {
		return nil, errors.New("loader is nil")
	}
	if a == nil {
		return nil, errors.New("analyzer is nil")
	}
	if concurrency <= 0 {
		return nil, fmt.Errorf("concurrency must be >= 1, got %d", concurrency)
	}
	return &Scheduler{loader: l, analyzer: a, concurrency: concurrency, failFast: failFast}, nil
}

// Execute streams per-file results.
//
// Channel semantics:
//   - Results are sent in plan order regardless of which worker finishes first.
//   - In the normal (non-canceled) case, exactly one FileExecutionResult is sent per file.
//   - On context cancellation, or after the first load failure with fail-fast,
//     the scheduler stops promptly; it may emit fewer than N results.
//   - The results channel and error channel are both closed reliably.
//   - The error channel is used for fatal errors / cancellation signals; per-file
//     load failures are recorded on FileExecutionResult.LoadErr.
func (s *Scheduler) Execute(ctx context.Context, plan *ScanPlan) (<-chan FileExecutionResult, <-chan error) {
	resultsCh := make(chan FileExecutionResult)
	errCh := make(chan error, 1)

	go func() {
		defer close(resultsCh)
		defer close(errCh)

		trySendErr := func(err error) {
			if err == nil {
				return
			}
			select {
			case errCh <- err:
			default:
			}
		}

		if ctx == nil {
			trySendErr(errors.New("context is nil"))
			return
		}
		if plan == nil {
			trySendErr(errors.New("scan plan is nil"))
			return
		}
		if s == nil {
			trySendErr(errors.New("scheduler is nil"))
			return
		}
		if s.loader == nil || s.analyzer == nil {
			trySendErr(errors.New("scheduler is not initialized; use NewScheduler"))
			return
		}
		if s.concurrency <= 0 {
			trySendErr(fmt.Errorf("scheduler concurrency must be >= 1, got %d", s.concurrency))
			return
		}

		// One single-slot channel per file; the emitter drains them in order.
		slots := make([]chan FileExecutionResult, len(plan.Files))
		for i := range slots {
			slots[i] = make(chan FileExecutionResult, 1)
		}

		var emitWG sync.WaitGroup
		emitWG.Add(1)
		go func() {
			defer emitWG.Done()
			for _, slot := range slots {
				if res, ok := <-slot; ok {
					resultsCh <- res
				}
			}
		}()

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.concurrency)

		for i, f := range plan.Files {
			i, f := i, f
			slot := slots[i]
			if gctx.Err() != nil {
				close(slot)
				continue
			}

			// Go blocks while the limit is reached.
			g.Go(func() error {
				defer close(slot)
				if gctx.Err() != nil {
					return nil
				}

				res := FileExecutionResult{Index: i, File: f}
				doc, err := s.loader.Load(gctx, f.Path)
				if err != nil {
					if gctx.Err() != nil && ctx.Err() != nil {
						// Canceled mid-read; the run is ending anyway.
						return nil
					}
					res.LoadErr = err
					slot <- res
					if s.failFast {
						return errFailFast
					}
					return nil
				}

				res.Report = s.analyzer.Analyze(doc)
				res.Report.Path = f.Path
				slot <- res
				return nil
			})
		}

		groupErr := g.Wait()
		emitWG.Wait()

		if groupErr != nil && !errors.Is(groupErr, errFailFast) {
			trySendErr(groupErr)
			return
		}
		trySendErr(ctx.Err())
	}()

	return resultsCh, errCh
}
