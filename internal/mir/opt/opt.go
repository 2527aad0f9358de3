// Package opt runs the release-mode MIR passes: constant folding, CFG
// simplification and global dead-store elimination.
package opt

import (
	"sync/atomic"

	"bell/internal/config"
	"bell/internal/mir"

	"golang.org/x/sync/errgroup"
)

// Stats counts what the passes changed.
type Stats struct {
	Folded     int
	Blocks     int
	DeadStores int
}

// Optimize rewrites prog in place. At the debug level it changes nothing.
func Optimize(prog *mir.Program, cfg *config.Config) Stats {
	if prog == nil || cfg == nil || cfg.OptLevel == config.OptDebug {
		return Stats{}
	}

	var folded, blocks atomic.Int64
	var group errgroup.Group
	group.SetLimit(max(cfg.Workers, 1))
	for _, fn := range prog.Functions {
		group.Go(func() error {
			folded.Add(int64(foldConstants(fn)))
			blocks.Add(int64(simplifyCFG(fn)))
			return nil
		})
	}
	_ = group.Wait()

	stats := Stats{Folded: int(folded.Load()), Blocks: int(blocks.Load())}
	stats.DeadStores = eliminateDeadStores(prog)

	// Dropped stores can leave arms empty.
	if stats.DeadStores > 0 {
		for _, fn := range prog.Functions {
			stats.Blocks += simplifyCFG(fn)
		}
	}
	return stats
}
