package pipeline

import (
	"fmt"
	"time"

	"github.com/sablepoint/dealdesk/internal/models"
)

// Transition validates and applies a stage change on a deal. Stages move
// forward only, except that any stage may jump straight to closed. Closing
// requires a non-pending outcome. Stage history is appended on success.
func Transition(deal *models.Deal, to models.Stage, outcome models.Outcome, now time.Time) error {
	if deal.Stage == models.StageClosed {
		return fmt.Errorf("deal %d is already closed", deal.ID)
	}

	if to == models.StageClosed {
		if outcome == models.OutcomePending || outcome == "" {
			return fmt.Errorf("closing a deal requires an outcome, got %q", outcome)
		}
		deal.Outcome = outcome
	} else {
		if to.Order() <= deal.Stage.Order() {
			return fmt.Errorf("invalid transition: %s -> %s", deal.Stage, to)
		}
		if to.Order() != deal.Stage.Order()+1 {
			return fmt.Errorf("invalid transition: %s -> %s (stages advance one at a time)", deal.Stage, to)
		}
	}

	deal.Stage = to
	deal.StageHistory = append(deal.StageHistory, models.StageEntry{Stage: to, EnteredAt: now})
	deal.UpdatedAt = now
	return nil
}
