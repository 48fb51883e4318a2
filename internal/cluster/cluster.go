// Package cluster runs the periodic sweep that groups related summaries and
// hands each group to the insight builder.
package cluster

import (
	"context"

	"github.com/untoldecay/Distillery/internal/builder"
	"github.com/untoldecay/Distillery/internal/logging"
	"github.com/untoldecay/Distillery/internal/search"
	"github.com/untoldecay/Distillery/internal/storage"
)

// Sweeper walks unclustered active summaries and forms a cluster around any
// summary with enough close neighbors. Every qualifying neighbor joins the
// cluster, up to the search limit.
type Sweeper struct {
	store  storage.Store
	search *search.Search
	l2     *builder.L2Builder
	log    logging.Logger

	// Threshold is the minimum cosine similarity for a neighbor to count.
	Threshold float64
	// Limit caps how many neighbors are considered per seed.
	Limit int
	// MinNeighbors is how many qualifying neighbors a seed needs before a
	// cluster forms.
	MinNeighbors int
}

func NewSweeper(store storage.Store, srch *search.Search, l2 *builder.L2Builder, log logging.Logger) *Sweeper {
	if log == nil {
		log = logging.Nop()
	}
	return &Sweeper{
		store:        store,
		search:       srch,
		l2:           l2,
		log:          log,
		Threshold:    0.70,
		Limit:        5,
		MinNeighbors: 2,
	}
}

// Run performs one sweep and returns how many insights were built. Summaries
// consumed by a cluster in this sweep are skipped as later seeds, so one
// sweep never double-books a summary.
func (s *Sweeper) Run(ctx context.Context) (int, error) {
	seeds, err := s.store.UnclusteredActiveSummaries(ctx)
	if err != nil {
		return 0, err
	}
	eligible := make(map[string]bool, len(seeds))
	for _, id := range seeds {
		eligible[id] = true
	}

	built := 0
	processed := make(map[string]bool)
	for _, seed := range seeds {
		if processed[seed] {
			continue
		}
		if ctx.Err() != nil {
			return built, ctx.Err()
		}

		neighbors, err := s.search.Related(ctx, seed, s.Limit, s.Threshold)
		if err != nil {
			// Typically an unembedded summary; it stays eligible for the
			// next sweep.
			s.log.Logf("sweep: neighbors for %s: %v", seed, err)
			continue
		}

		var members []string
		for _, n := range neighbors {
			if !eligible[n.SummaryID] || processed[n.SummaryID] {
				continue
			}
			members = append(members, n.SummaryID)
		}
		if len(members) < s.MinNeighbors {
			continue
		}

		cluster := append([]string{seed}, members...)
		if _, err := s.l2.BuildFromCluster(ctx, cluster); err != nil {
			s.log.Logf("sweep: build cluster for %s: %v", seed, err)
			continue
		}
		for _, id := range cluster {
			processed[id] = true
		}
		built++
	}
	return built, nil
}
