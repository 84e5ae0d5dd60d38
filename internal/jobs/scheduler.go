package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"lumiere/salon/internal/config"
	"lumiere/salon/internal/repository"
	"lumiere/salon/internal/service"
)

// Scheduler runs the housekeeping jobs: abandoned-cart purge nightly and a
// catalog cache warm every hour.
type Scheduler struct {
	cron    *cron.Cron
	cart    *repository.CartRepository
	catalog *service.CatalogService
	cfg     *config.AppConfig
	log     zerolog.Logger
}

func NewScheduler(cart *repository.CartRepository, catalog *service.CatalogService, cfg *config.AppConfig, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:    c,
		cart:    cart,
		catalog: catalog,
		cfg:     cfg,
		log:     log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("0 0 3 * * *", s.purgeStaleCarts); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("0 0 * * * *", s.warmCatalogCache); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop halts scheduling and waits briefly for running jobs to drain.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("scheduler jobs still running at shutdown")
	}
}

func (s *Scheduler) purgeStaleCarts() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	removed, err := s.cart.PurgeStale(ctx, s.cfg.Catalog.CartRetention)
	if err != nil {
		s.log.Error().Err(err).Msg("purge stale carts failed")
		return
	}
	if removed > 0 {
		s.log.Info().Int64("removed", removed).Msg("stale cart items purged")
	}
}

func (s *Scheduler) warmCatalogCache() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := s.catalog.WarmCache(ctx); err != nil {
		s.log.Error().Err(err).Msg("catalog cache warm failed")
	}
}
