package generation

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/videobuds/backend/internal/logger"
	"github.com/videobuds/backend/internal/models"
)

// maxConcurrent bounds how many provider jobs a batch runs at once.
// Submission is a cheap HTTP call; the cap mostly limits parallel poll
// loops against the provider APIs.
const maxConcurrent = 20

// BatchResult pairs one batch entry with its outcome. Generation is
// nil only when the ledger row itself could not be created.
type BatchResult struct {
	Generation *models.Generation
	Err        error
}

// Succeeded reports how many entries finished with a stored asset.
func Succeeded(results []BatchResult) int {
	n := 0
	for _, r := range results {
		if r.Err == nil && r.Generation != nil && r.Generation.Status == models.GenerationStatusSuccess {
			n++
		}
	}
	return n
}

// DispatchBatch runs every request concurrently and waits for all of
// them. Ledger rows are created up front so the whole batch is visible
// as pending before the first provider call goes out. One failed entry
// never aborts the others.
func (d *Dispatcher) DispatchBatch(ctx context.Context, reqs []Request) []BatchResult {
	results := make([]BatchResult, len(reqs))

	for i, req := range reqs {
		gen, err := d.createLedgerRow(req)
		results[i] = BatchResult{Generation: gen, Err: err}
	}

	sem := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup
	for i := range results {
		if results[i].Err != nil || results[i].Generation == nil {
			continue
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i].Err = d.run(ctx, results[i].Generation, reqs[i])
		}(i)
	}
	wg.Wait()

	logger.Log.Info("generation batch finished",
		zap.Int("total", len(reqs)),
		zap.Int("succeeded", Succeeded(results)))
	return results
}
