package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sablepoint/dealdesk/internal/cache"
	"github.com/sablepoint/dealdesk/internal/models"
	"github.com/sablepoint/dealdesk/internal/network"
	"github.com/sablepoint/dealdesk/internal/persistence"
	"github.com/sablepoint/dealdesk/internal/portfolio"
)

// Job type names bound by RegisterCRMJobs
const (
	JobPublishDue        = "content.publish_due"
	JobWarmthRefresh     = "network.warmth_refresh"
	JobPortfolioSnapshot = "portfolio.snapshot"
)

// contactBatchLimit bounds one warmth refresh pass
const contactBatchLimit = 5000

// Deps carries the collaborators the CRM jobs need. Warmth may be nil when
// the Redis cache is disabled.
type Deps struct {
	Contacts  persistence.ContactsRepo
	Content   persistence.ContentRepo
	Portfolio persistence.PortfolioRepo
	Scorer    *network.WarmthScorer
	Warmth    *cache.WarmthCache
	Now       func() time.Time
}

// RegisterCRMJobs binds the standard job types to their implementations
func RegisterCRMJobs(s *Scheduler, deps Deps) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Scorer == nil {
		deps.Scorer = network.NewWarmthScorer(nil)
	}
	s.Register(JobPublishDue, PublishDueJob(deps))
	s.Register(JobWarmthRefresh, WarmthRefreshJob(deps))
	s.Register(JobPortfolioSnapshot, PortfolioSnapshotJob(deps))
}

// PublishDueJob publishes scheduled posts whose time has passed. A failure
// on one post does not block the rest.
func PublishDueJob(deps Deps) JobFunc {
	return func(ctx context.Context) error {
		now := deps.Now()
		due, err := deps.Content.ListDue(ctx, now)
		if err != nil {
			return fmt.Errorf("failed to list due posts: %w", err)
		}

		failures := 0
		for _, post := range due {
			if err := deps.Content.MarkPublished(ctx, post.ID, now); err != nil {
				failures++
				log.Error().Err(err).Int64("post_id", post.ID).Msg("Failed to publish post")
				continue
			}
			log.Info().Int64("post_id", post.ID).Str("title", post.Title).
				Strs("channels", post.Channels).Msg("Post published")
		}

		if failures > 0 {
			return fmt.Errorf("%d of %d due posts failed to publish", failures, len(due))
		}
		return nil
	}
}

// WarmthRefreshJob recomputes warmth for every contact and refreshes the
// cache
func WarmthRefreshJob(deps Deps) JobFunc {
	return func(ctx context.Context) error {
		now := deps.Now()
		contacts, err := deps.Contacts.List(ctx, contactBatchLimit)
		if err != nil {
			return fmt.Errorf("failed to list contacts: %w", err)
		}

		updated := 0
		for i := range contacts {
			c := &contacts[i]
			fresh := deps.Scorer.Score(c.Tier, c.LastTouchAt, now)
			if fresh == c.WarmthScore {
				continue
			}

			if err := deps.Contacts.UpdateWarmth(ctx, c.ID, fresh, c.LastTouchAt); err != nil {
				return fmt.Errorf("failed to update warmth for contact %d: %w", c.ID, err)
			}
			if deps.Warmth != nil {
				if err := deps.Warmth.Set(ctx, c.ID, fresh); err != nil {
					log.Warn().Err(err).Int64("contact_id", c.ID).Msg("Warmth cache write failed")
				}
			}
			updated++
		}

		log.Info().Int("contacts", len(contacts)).Int("updated", updated).Msg("Warmth refresh complete")
		return nil
	}
}

// PortfolioSnapshotJob appends a valuation snapshot per position and
// re-derives health from the trend
func PortfolioSnapshotJob(deps Deps) JobFunc {
	return func(ctx context.Context) error {
		now := deps.Now()
		positions, err := deps.Portfolio.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list positions: %w", err)
		}

		for i := range positions {
			pos := &positions[i]

			// Prior snapshot before appending a new one
			prior, err := deps.Portfolio.ListSnapshots(ctx, pos.ID, 1)
			if err != nil {
				return fmt.Errorf("failed to read snapshots for position %d: %w", pos.ID, err)
			}

			snap := &models.ValuationSnapshot{PositionID: pos.ID, Valuation: pos.CurrentValuation, TakenAt: now}
			if err := deps.Portfolio.InsertSnapshot(ctx, snap); err != nil {
				return fmt.Errorf("failed to snapshot position %d: %w", pos.ID, err)
			}

			if len(prior) == 0 {
				continue
			}
			health := portfolio.DeriveHealth(prior[0].Valuation, pos.CurrentValuation)
			if health == pos.Health {
				continue
			}

			pos.Health = health
			if err := deps.Portfolio.Update(ctx, pos); err != nil {
				return fmt.Errorf("failed to update health for position %d: %w", pos.ID, err)
			}
			log.Info().Int64("position_id", pos.ID).Str("health", string(health)).Msg("Position health changed")
		}

		return nil
	}
}
