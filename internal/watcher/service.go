package watcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wankata/github-api-client/internal/logger"
	"github.com/wankata/github-api-client/pkg/targets"
)

// Service runs watch passes across all configured targets.
type Service struct {
	processor *TargetProcessor
}

// NewService wires a watcher around a processor.
func NewService(users UserFetcher, scraper BlogScraper, publisher EventPublisher, store DigestStore) *Service {
	return &Service{
		processor: NewTargetProcessor(users, scraper, publisher, store),
	}
}

// Run executes one pass over tgs. Target failures are logged and joined;
// the pass continues with the next target.
func (s *Service) Run(ctx context.Context, tgs []targets.Target) error {
	if s == nil || s.processor == nil {
		return fmt.Errorf("watcher service is not initialized")
	}

	if len(tgs) == 0 {
		return fmt.Errorf("no targets configured for watching")
	}

	errs := s.runAll(ctx, tgs)
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

func (s *Service) runAll(ctx context.Context, tgs []targets.Target) []error {
	errs := make([]error, 0, len(tgs))

	for i, t := range tgs {
		if ctx.Err() != nil {
			return errs
		}

		outcome, err := s.processor.Process(ctx, t)
		if err != nil {
			errs = append(errs, err)
			logger.ErrorObj("target watch failed", "target_error", map[string]any{
				"target_id": t.ID,
				"error":     err.Error(),
			})
		} else {
			logger.InfoObj("target watch completed", "target_result", map[string]any{
				"target_id": t.ID,
				"outcome":   string(outcome),
			})
		}

		if i < len(tgs)-1 && !sleep(ctx, t.RequestDelay()) {
			return errs
		}
	}

	return errs
}

// sleep waits for d and reports false if ctx was cancelled first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
