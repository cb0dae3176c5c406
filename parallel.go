package borrowck

import (
	"context"
	"runtime"

	"github.com/BarrensZeppelin/borrowck/config"
	"github.com/BarrensZeppelin/borrowck/mir"
	"golang.org/x/sync/errgroup"
)

// CheckAll checks the bodies concurrently with at most jobs workers (all
// processors when jobs <= 0). The i'th result is the outcome of Check on
// bodies[i]. The second result is non-nil only if ctx was cancelled before
// every body was checked.
func CheckAll(ctx context.Context, bodies []*mir.Body, opts *config.Config, log *config.LogGroup, jobs int) ([]error, error) {
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	if jobs > len(bodies) {
		jobs = len(bodies)
	}

	// Every goroutine writes its own index.
	results := make([]error, len(bodies))
	if len(bodies) == 0 {
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)

	for i, body := range bodies {
		i, body := i, body
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			results[i] = Check(AnalysisConfig{Body: body, Options: opts, Log: log})
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	log.Infof("checked %d bodies", len(bodies))
	return results, nil
}
