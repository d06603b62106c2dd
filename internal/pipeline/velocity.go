package pipeline

import (
	"sort"
	"time"

	"github.com/sablepoint/dealdesk/internal/models"
)

// StageStats holds dwell-time and conversion statistics for one stage
type StageStats struct {
	Stage          models.Stage `json:"stage"`
	Entered        int          `json:"entered"`         // deals that reached this stage
	Advanced       int          `json:"advanced"`        // deals that moved past it
	ConversionRate float64      `json:"conversion_rate"` // advanced / entered
	MedianDays     float64      `json:"median_days"`     // dwell time for deals that advanced
	MeanDays       float64      `json:"mean_days"`
}

// VelocityReport summarizes pipeline throughput over a deal set
type VelocityReport struct {
	Deals             int          `json:"deals"`
	Stages            []StageStats `json:"stages"`
	MedianCycleDays   float64      `json:"median_cycle_days"` // sourced -> closed, closed deals only
	ClosedDeals       int          `json:"closed_deals"`
	InvestedDeals     int          `json:"invested_deals"`
	OverallConversion float64      `json:"overall_conversion"` // invested / total
}

// pipelineStages is the report ordering; closed is terminal so it carries no
// dwell statistics of its own.
var pipelineStages = []models.Stage{
	models.StageSourced,
	models.StageScreening,
	models.StageDiligence,
	models.StageTermSheet,
}

// Velocity computes per-stage dwell and conversion statistics in a single
// pass over the deals' stage histories. Histories are assumed append-ordered
// by entered_at, which Transition guarantees.
func Velocity(deals []models.Deal) *VelocityReport {
	report := &VelocityReport{Deals: len(deals)}

	entered := make(map[models.Stage]int)
	advanced := make(map[models.Stage]int)
	dwellDays := make(map[models.Stage][]float64)
	var cycleDays []float64

	for _, deal := range deals {
		history := deal.StageHistory
		for i, entry := range history {
			entered[entry.Stage]++
			if i+1 < len(history) {
				advanced[entry.Stage]++
				days := history[i+1].EnteredAt.Sub(entry.EnteredAt).Hours() / 24.0
				dwellDays[entry.Stage] = append(dwellDays[entry.Stage], days)
			}
		}

		if deal.IsClosed() && len(history) >= 2 {
			total := history[len(history)-1].EnteredAt.Sub(history[0].EnteredAt).Hours() / 24.0
			cycleDays = append(cycleDays, total)
		}
		if deal.IsClosed() {
			report.ClosedDeals++
			if deal.Outcome == models.OutcomeInvested {
				report.InvestedDeals++
			}
		}
	}

	for _, stage := range pipelineStages {
		stats := StageStats{
			Stage:    stage,
			Entered:  entered[stage],
			Advanced: advanced[stage],
		}
		if stats.Entered > 0 {
			stats.ConversionRate = float64(stats.Advanced) / float64(stats.Entered)
		}
		stats.MedianDays = median(dwellDays[stage])
		stats.MeanDays = mean(dwellDays[stage])
		report.Stages = append(report.Stages, stats)
	}

	report.MedianCycleDays = median(cycleDays)
	if report.Deals > 0 {
		report.OverallConversion = float64(report.InvestedDeals) / float64(report.Deals)
	}

	return report
}

// StageEntryAt is a convenience for building histories in fixtures and
// importers
func StageEntryAt(stage models.Stage, at time.Time) models.StageEntry {
	return models.StageEntry{Stage: stage, EnteredAt: at}
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2.0
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
