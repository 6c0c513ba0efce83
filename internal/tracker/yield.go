/*

This file computes annualized returns from the daily aggregate rows. Very
short windows use simple annualization to avoid amplifying compounding noise;
longer windows compound.

*/

package tracker

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/blm-labs/blm/internal/logger"
	"github.com/blm-labs/blm/internal/types"
)

// DailyProvider supplies daily aggregate rows ordered oldest to newest.
type DailyProvider interface {
	RecentDailyAggregates(days int) ([]types.DailyAggregate, error)
}

// YieldAnalytics computes APY figures over the daily aggregate history.
type YieldAnalytics struct {
	logger zerolog.Logger
	db     DailyProvider
}

// NewYieldAnalytics creates the analytics component.
func NewYieldAnalytics(db DailyProvider) *YieldAnalytics {
	return &YieldAnalytics{
		logger: logger.GetForComponent("yield_analytics"),
		db:     db,
	}
}

// APY returns the annualized return in percent over the trailing window of
// daily aggregates. Errors and insufficient history both yield 0.
func (y *YieldAnalytics) APY(days int) float64 {
	rows, err := y.db.RecentDailyAggregates(days)
	if err != nil {
		y.logger.Error().Err(err).Int("days", days).Msg("Failed to fetch daily aggregates for APY")
		return 0
	}
	return ComputeAPY(rows)
}

// ComputeAPY annualizes the return across the given daily rows (ordered
// oldest to newest). Fewer than two rows returns 0. With fewer than three
// rows the return is annualized linearly; otherwise it is compounded, with
// the period return clamped to [-0.99, 10] before compounding.
func ComputeAPY(rows []types.DailyAggregate) float64 {
	n := len(rows)
	if n < 2 {
		return 0
	}

	firstOpen := rows[0].OpenValue
	lastClose := rows[n-1].CloseValue

	totalReturn := 0.0
	if firstOpen > 0 {
		totalReturn = (lastClose - firstOpen) / firstOpen
	}

	if n < 3 {
		return clamp(totalReturn/float64(n)*365*100, -1000, 10000)
	}

	clampedReturn := clamp(totalReturn, -0.99, 10)
	apy := (math.Pow(1+clampedReturn, 365/float64(n)) - 1) * 100
	return clamp(apy, -1000, 100000)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
