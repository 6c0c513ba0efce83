package tracker

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/blm-labs/blm/internal/types"
)

func aggRow(date string, open, close float64) types.DailyAggregate {
	return types.DailyAggregate{Date: date, OpenValue: open, CloseValue: close}
}

func TestComputeAPY_InsufficientHistory(t *testing.T) {
	assert.Equal(t, 0.0, ComputeAPY(nil))
	assert.Equal(t, 0.0, ComputeAPY([]types.DailyAggregate{aggRow("2025-06-01", 100, 105)}))
}

func TestComputeAPY_TwoRowsAnnualizesLinearly(t *testing.T) {
	rows := []types.DailyAggregate{
		aggRow("2025-06-01", 100, 101),
		aggRow("2025-06-02", 101, 102),
	}

	// total return 2% over 2 days → 0.02/2×365×100 = 365
	assert.InDelta(t, 365.0, ComputeAPY(rows), 1e-9)
}

func TestComputeAPY_TwoRowsClampedAtExtremes(t *testing.T) {
	collapse := []types.DailyAggregate{
		aggRow("2025-06-01", 100, 50),
		aggRow("2025-06-02", 50, 1),
	}
	assert.Equal(t, -1000.0, ComputeAPY(collapse))

	moon := []types.DailyAggregate{
		aggRow("2025-06-01", 100, 500),
		aggRow("2025-06-02", 500, 800),
	}
	assert.Equal(t, 10000.0, ComputeAPY(moon))
}

func TestComputeAPY_CompoundsOverLongerWindows(t *testing.T) {
	rows := []types.DailyAggregate{
		aggRow("2025-06-01", 100, 101),
		aggRow("2025-06-02", 101, 102),
		aggRow("2025-06-03", 102, 103),
		aggRow("2025-06-04", 103, 104),
		aggRow("2025-06-05", 104, 105),
		aggRow("2025-06-06", 105, 106),
		aggRow("2025-06-07", 106, 107),
	}

	// 7% over 7 days compounds to (1.07)^(365/7) - 1.
	expected := (math.Pow(1.07, 365.0/7.0) - 1) * 100
	got := ComputeAPY(rows)

	assert.InDelta(t, expected, got, 1e-6)
	assert.Greater(t, got, 0.0)
	assert.False(t, math.IsInf(got, 0))
	assert.GreaterOrEqual(t, got, -1000.0)
	assert.LessOrEqual(t, got, 100000.0)
}

func TestComputeAPY_ZeroOpenYieldsZeroReturn(t *testing.T) {
	rows := []types.DailyAggregate{
		aggRow("2025-06-01", 0, 100),
		aggRow("2025-06-02", 100, 110),
	}

	assert.Equal(t, 0.0, ComputeAPY(rows))
}

func TestComputeAPY_CompoundClampsPeriodReturn(t *testing.T) {
	// A 20x period return clamps to 10 before compounding, and the result
	// clamps to the display ceiling.
	rows := []types.DailyAggregate{
		aggRow("2025-06-01", 100, 500),
		aggRow("2025-06-02", 500, 1200),
		aggRow("2025-06-03", 1200, 2000),
	}

	assert.Equal(t, 100000.0, ComputeAPY(rows))
}

type fakeDailyProvider struct {
	rows []types.DailyAggregate
	err  error
}

func (f *fakeDailyProvider) RecentDailyAggregates(days int) ([]types.DailyAggregate, error) {
	return f.rows, f.err
}

func TestYieldAnalytics_APY(t *testing.T) {
	provider := &fakeDailyProvider{rows: []types.DailyAggregate{
		aggRow("2025-06-01", 100, 101),
		aggRow("2025-06-02", 101, 102),
	}}

	y := NewYieldAnalytics(provider)
	assert.InDelta(t, 365.0, y.APY(7), 1e-9)
}

func TestYieldAnalytics_ProviderErrorYieldsZero(t *testing.T) {
	y := NewYieldAnalytics(&fakeDailyProvider{err: assert.AnError})
	assert.Equal(t, 0.0, y.APY(7))
}
