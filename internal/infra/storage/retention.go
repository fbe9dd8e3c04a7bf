package storage

import (
	"context"
	"time"

	"github.com/MRamiBalles/ParaBot/internal/platform/logger"
)

// RunRetention prunes the journal to keep events every interval until ctx is
// cancelled. keep == 0 disables pruning.
func RunRetention(ctx context.Context, repo EventRepository, keep int, interval time.Duration, log *logger.Logger) {
	if keep <= 0 || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := repo.Prune(ctx, keep)
			if err != nil {
				if ctx.Err() == nil {
					log.Warn("journal prune failed", "error", err)
				}
				continue
			}
			if n > 0 {
				log.Debug("journal pruned", "removed", n, "keep", keep)
			}
		}
	}
}
