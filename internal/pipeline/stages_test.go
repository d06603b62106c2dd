package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sablepoint/dealdesk/internal/models"
)

func newDeal(stage models.Stage) *models.Deal {
	return &models.Deal{
		ID:      1,
		Company: "Quantex Robotics",
		Stage:   stage,
		Outcome: models.OutcomePending,
	}
}

func TestTransition_ForwardAdvance(t *testing.T) {
	deal := newDeal(models.StageSourced)
	now := time.Now()

	require.NoError(t, Transition(deal, models.StageScreening, models.OutcomePending, now))
	assert.Equal(t, models.StageScreening, deal.Stage)
	require.Len(t, deal.StageHistory, 1)
	assert.Equal(t, models.StageScreening, deal.StageHistory[0].Stage)
	assert.Equal(t, now, deal.StageHistory[0].EnteredAt)
}

func TestTransition_BackwardRejected(t *testing.T) {
	deal := newDeal(models.StageDiligence)

	err := Transition(deal, models.StageSourced, models.OutcomePending, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "diligence -> sourced")
	assert.Equal(t, models.StageDiligence, deal.Stage, "failed transition must not mutate")
}

func TestTransition_SkipRejected(t *testing.T) {
	deal := newDeal(models.StageSourced)

	err := Transition(deal, models.StageTermSheet, models.OutcomePending, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "one at a time")
}

func TestTransition_CloseFromAnyStage(t *testing.T) {
	for _, from := range []models.Stage{models.StageSourced, models.StageScreening, models.StageDiligence, models.StageTermSheet} {
		deal := newDeal(from)
		err := Transition(deal, models.StageClosed, models.OutcomePassed, time.Now())
		require.NoError(t, err, "closing from %s", from)
		assert.Equal(t, models.StageClosed, deal.Stage)
		assert.Equal(t, models.OutcomePassed, deal.Outcome)
	}
}

func TestTransition_CloseRequiresOutcome(t *testing.T) {
	deal := newDeal(models.StageTermSheet)

	err := Transition(deal, models.StageClosed, models.OutcomePending, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires an outcome")
}

func TestTransition_ClosedIsTerminal(t *testing.T) {
	deal := newDeal(models.StageTermSheet)
	require.NoError(t, Transition(deal, models.StageClosed, models.OutcomeInvested, time.Now()))

	err := Transition(deal, models.StageSourced, models.OutcomePending, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already closed")
}
