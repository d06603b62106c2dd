// Package backtest evaluates how well historical deal scores predicted
// investment outcomes. It is a pure calculator over (score, outcome) pairs;
// no state, no persistence.
package backtest

import (
	"fmt"

	"github.com/sablepoint/dealdesk/internal/models"
)

// Record pairs a deal's historical score with its realized outcome
type Record struct {
	DealID  int64          `json:"deal_id"`
	Company string         `json:"company"`
	Score   float64        `json:"score"`
	Outcome models.Outcome `json:"outcome"`
}

// Result summarizes predictive quality at a single score threshold
type Result struct {
	Threshold float64 `json:"threshold"`
	Deals     int     `json:"deals"`
	Flagged   int     `json:"flagged"`   // score >= threshold
	Hits      int     `json:"hits"`      // flagged and invested
	Misses    int     `json:"misses"`    // invested but below threshold
	HitRate   float64 `json:"hit_rate"`  // hits / invested
	MissRate  float64 `json:"miss_rate"` // misses / invested
	Precision float64 `json:"precision"`
}

// SweepPoint is one threshold in a sweep
type SweepPoint struct {
	Threshold float64 `json:"threshold"`
	Precision float64 `json:"precision"`
	HitRate   float64 `json:"hit_rate"`
}

// Evaluate computes predictive stats for one threshold. Pending outcomes are
// excluded: they have not resolved, so they can neither hit nor miss.
func Evaluate(records []Record, threshold float64) (*Result, error) {
	if threshold < 0 || threshold > 100 {
		return nil, fmt.Errorf("threshold out of range [0,100]: %.2f", threshold)
	}

	result := &Result{Threshold: threshold}
	invested := 0

	for _, r := range records {
		if r.Outcome == models.OutcomePending {
			continue
		}
		result.Deals++

		flagged := r.Score >= threshold
		if flagged {
			result.Flagged++
		}
		if r.Outcome == models.OutcomeInvested {
			invested++
			if flagged {
				result.Hits++
			} else {
				result.Misses++
			}
		}
	}

	if invested > 0 {
		result.HitRate = float64(result.Hits) / float64(invested)
		result.MissRate = float64(result.Misses) / float64(invested)
	}
	if result.Flagged > 0 {
		result.Precision = float64(result.Hits) / float64(result.Flagged)
	}

	return result, nil
}

// Sweep evaluates thresholds from 0 to 100 at the given step, for picking an
// operating point.
func Sweep(records []Record, step float64) ([]SweepPoint, error) {
	if step <= 0 || step > 100 {
		return nil, fmt.Errorf("invalid sweep step: %.2f", step)
	}

	var points []SweepPoint
	for threshold := 0.0; threshold <= 100.0; threshold += step {
		result, err := Evaluate(records, threshold)
		if err != nil {
			return nil, err
		}
		points = append(points, SweepPoint{
			Threshold: threshold,
			Precision: result.Precision,
			HitRate:   result.HitRate,
		})
	}
	return points, nil
}
