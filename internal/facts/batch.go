package facts

import (
	"context"
	"log"
	"sync"

	"journey-insights/internal/model"
)

// MaxConcurrentExtractions bounds extractor fan-out across a batch so a large
// cohort does not multiply outstanding external calls
const MaxConcurrentExtractions = 8

// BuildAllSessionFacts normalizes a batch of raw sessions through a bounded
// worker pool. One session's failure never aborts its siblings: successes
// and failures are returned side by side, successes in input order.
func BuildAllSessionFacts(ctx context.Context, raws []*model.RawSession, deps SessionDeps) ([]*model.SessionFacts, []model.IngestFailure) {
	results := make([]*model.SessionFacts, len(raws))
	errs := make([]error, len(raws))

	sem := make(chan struct{}, MaxConcurrentExtractions)
	var wg sync.WaitGroup
	for i, raw := range raws {
		wg.Add(1)
		go func(i int, raw *model.RawSession) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i], errs[i] = BuildSessionFacts(ctx, raw, deps)
		}(i, raw)
	}
	wg.Wait()

	var facts []*model.SessionFacts
	var failures []model.IngestFailure
	for i, raw := range raws {
		if errs[i] != nil {
			log.Printf("Warning: failed to build facts for session %s: %v", raw.SessionID, errs[i])
			failures = append(failures, model.IngestFailure{
				SessionID: raw.SessionID,
				Reason:    errs[i].Error(),
			})
			continue
		}
		facts = append(facts, results[i])
	}
	return facts, failures
}
