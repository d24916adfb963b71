// CLAUDE:SUMMARY Bounded-concurrency batch runner over Manager.Process.
package ingest

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ProcessAll ingests every file with bounded concurrency and returns
// results and errors in slots parallel to paths: a failed file leaves a
// nil result and its error in place without stopping the rest of the
// batch. Concurrency is cfg.BatchWorkers; the default of 1 serializes
// conversions because headless LibreOffice misbehaves with concurrent
// instances.
func (m *Manager) ProcessAll(ctx context.Context, paths []string, userID string) ([]*Result, []error) {
	results := make([]*Result, len(paths))
	errs := make([]error, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.BatchWorkers)
	for i, path := range paths {
		g.Go(func() error {
			res, err := m.Process(ctx, path, userID)
			results[i] = res
			errs[i] = err
			return nil
		})
	}
	g.Wait()
	return results, errs
}
