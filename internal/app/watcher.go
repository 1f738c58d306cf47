package app

import (
	"context"
	"fmt"
	"time"

	"github.com/wankata/github-api-client/internal/config"
	"github.com/wankata/github-api-client/internal/logger"
	"github.com/wankata/github-api-client/internal/storage"
	"github.com/wankata/github-api-client/internal/watcher"
	"github.com/wankata/github-api-client/pkg/github"
	"github.com/wankata/github-api-client/pkg/publishers"
	"github.com/wankata/github-api-client/pkg/targets"
)

// Watcher is the profile watcher runtime. It owns the poll loop and the
// resources shared by every pass: the API client, publishers and the
// snapshot store.
type Watcher struct {
	cfg          *config.Config
	targetReg    *targets.Registry
	fanout       *publishers.Fanout
	service      *watcher.Service
	pollInterval time.Duration
	log          logger.Logger
	store        storage.Store
}

// NewGitHubClient builds the API client described by cfg.
func NewGitHubClient(cfg *config.Config, log logger.Logger) (*github.Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	opts := []github.Option{}
	if log != nil {
		opts = append(opts, github.WithLogger(log))
	}
	return github.NewClient(github.Config{
		BaseURL:   cfg.APIURL,
		Token:     cfg.AuthToken,
		Timeout:   cfg.HTTPTimeout,
		UserAgent: cfg.UserAgent,
	}, opts...)
}

// NewWatcher builds a watcher runtime from config files.
func NewWatcher(ctx context.Context, cfg *config.Config, log logger.Logger) (*Watcher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	client, err := NewGitHubClient(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("init github client: %w", err)
	}

	targetReg, err := targets.LoadRegistry(cfg.TargetsFile)
	if err != nil {
		return nil, fmt.Errorf("load targets registry: %w", err)
	}
	targetList := targetReg.All()
	targetIDs := make([]string, 0, len(targetList))
	for _, t := range targetList {
		if t.Self && cfg.AuthToken == "" {
			return nil, fmt.Errorf("target %q watches the authenticated user but no auth_token is configured", t.ID)
		}
		targetIDs = append(targetIDs, t.ID)
	}
	log.InfoObj("targets registry loaded", "targets_meta", map[string]any{
		"count": len(targetIDs),
		"ids":   targetIDs,
	})

	publisherReg, err := publishers.LoadRegistry(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}

	enabledPublishers := publisherReg.Enabled()
	if len(enabledPublishers) == 0 {
		return nil, fmt.Errorf("no publishers configured")
	}

	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabledPublishers, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}
	fanout := publishers.NewFanout(pubClients)
	publisherSummaries := make([]map[string]string, 0, len(enabledPublishers))
	for _, pubCfg := range enabledPublishers {
		publisherSummaries = append(publisherSummaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(publisherSummaries),
		"publishers": publisherSummaries,
	})

	storeOpts := storage.Options{
		DigestTTL:       cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	}
	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storeOpts)
	if err != nil {
		_ = fanout.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"digest_ttl_seconds":       int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	service := watcher.NewService(client, watcher.NewScraper(nil, cfg.UserAgent), fanout, store)

	return &Watcher{
		cfg:          cfg,
		targetReg:    targetReg,
		fanout:       fanout,
		service:      service,
		pollInterval: cfg.PollInterval,
		log:          log,
		store:        store,
	}, nil
}

// Run starts the poll loop until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if w == nil || w.service == nil {
		return fmt.Errorf("watcher is not initialized")
	}
	defer w.close()
	tgs := w.targetReg.All()
	if len(tgs) == 0 {
		w.log.WarnObj("no targets configured; watcher idle", "targets_file", w.cfg.TargetsFile)
		<-ctx.Done()
		return ctx.Err()
	}

	w.log.InfoObj("watcher loop starting", "watcher_state", map[string]any{
		"targets_count":    len(tgs),
		"publishers_count": w.fanout.Size(),
		"poll_interval":    w.pollInterval.String(),
	})

	if err := w.runOnce(ctx, tgs); err != nil {
		w.log.ErrorObj("initial watch pass failed", "error", err)
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.InfoObj("watcher loop exiting", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			if err := w.runOnce(ctx, tgs); err != nil {
				w.log.ErrorObj("scheduled watch pass failed", "error", err)
			}
		}
	}
}

// runOnce performs a single pass across all targets.
func (w *Watcher) runOnce(ctx context.Context, tgs []targets.Target) error {
	start := time.Now()
	w.log.InfoObj("watch pass started", "watch_meta", map[string]any{
		"targets_count": len(tgs),
		"started_at":    start.UTC(),
	})
	if err := w.service.Run(ctx, tgs); err != nil {
		return err
	}
	w.log.InfoObj("watch pass completed", "watch_meta", map[string]any{
		"targets_count": len(tgs),
		"elapsed_ms":    time.Since(start).Milliseconds(),
	})
	return nil
}

// close releases the store and publisher clients, logging any errors encountered.
func (w *Watcher) close() {
	if w == nil {
		return
	}
	if w.store != nil {
		if err := w.store.Close(); err != nil {
			w.log.ErrorObj("storage close failed", "error", err)
		}
	}
	if err := w.fanout.Close(); err != nil {
		w.log.ErrorObj("publishers close failed", "error", err)
	}
}
