package crontab

import (
	"context"
	"time"

	"github.com/mileusna/crontab"
	"github.com/rs/zerolog"

	"github.com/fredericlb/BespokeSynthPatches/internal/config"
	"github.com/fredericlb/BespokeSynthPatches/internal/utils/platformerrors"
)

// JobTimeout bounds a single scheduled run.
const JobTimeout = 2 * time.Minute

// TokenPurger removes expired action tokens.
type TokenPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Crontab runs the periodic maintenance jobs of the service.
type Crontab struct {
	ctab   *crontab.Crontab
	cfg    *config.Config
	tokens TokenPurger
	log    zerolog.Logger
}

func NewCrontab(cfg *config.Config, tokens TokenPurger, log zerolog.Logger) *Crontab {
	return &Crontab{
		ctab:   crontab.New(),
		cfg:    cfg,
		tokens: tokens,
		log:    log.With().Str("component", "crontab").Logger(),
	}
}

// Run schedules the jobs and blocks until ctx is cancelled.
func (c *Crontab) Run(ctx context.Context) error {
	// execute once on start so a restart never leaves stale tokens behind
	c.purgeExpiredTokens(ctx)

	if schedule := c.cfg.ActionTokenPurgeCron; schedule != "" {
		if err := c.ctab.AddJob(schedule, func() {
			jobCtx, cancel := context.WithTimeout(context.Background(), JobTimeout)
			defer cancel()
			c.purgeExpiredTokens(jobCtx)
		}); err != nil {
			c.ctab.Shutdown()
			return platformerrors.NewError(
				ctx,
				platformerrors.LayerInfrastructure,
				platformerrors.ErrorTypeInternal,
				"failed to add token purge job",
				err,
				"b71c0e4a-92d5-4f3e-8a61-5c09d7e2f813",
			)
		}
		c.log.Info().Str("schedule", schedule).Msg("action token purge scheduled")
	}

	<-ctx.Done()
	c.ctab.Shutdown()
	return nil
}

func (c *Crontab) purgeExpiredTokens(ctx context.Context) {
	purged, err := c.tokens.PurgeExpired(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("purge expired action tokens")
		return
	}
	if purged > 0 {
		c.log.Info().Int64("purged", purged).Msg("expired action tokens removed")
	}
}
