/*

This file tracks per-position regime state across ticks. The tracker
remembers the last observed side-ratio for every position and emits a price
history record whenever a position crosses fully onto one side of its range.

*/

package tracker

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/blm-labs/blm/internal/logger"
	"github.com/blm-labs/blm/internal/types"
)

// RegimeTracker holds the last observed side-ratio per position key. Entries
// are created on first observation and evicted when a position disappears
// from the tick's position list. The tracker is owned and mutated only by
// the evaluation loop.
type RegimeTracker struct {
	logger       zerolog.Logger
	lastRatio    map[string]float64
	askThreshold float64
	bidThreshold float64
	now          func() time.Time
}

// NewRegimeTracker creates a tracker using the regime thresholds from the
// strategy parameters.
func NewRegimeTracker(params types.StrategyParameters) *RegimeTracker {
	return &RegimeTracker{
		logger:       logger.GetForComponent("regime_tracker"),
		lastRatio:    make(map[string]float64),
		askThreshold: params.AskRegimeThreshold,
		bidThreshold: params.BidRegimeThreshold,
		now:          time.Now,
	}
}

// Observe feeds one position valuation into the tracker and returns a price
// history record when a regime transition occurred, nil otherwise. The
// stored ratio is unconditionally updated afterwards.
//
// Transition rules: on first observation a record is seeded only when the
// position is already fully on one side. After that, a record is emitted
// when the ratio crosses upward through the ask threshold (amount = base
// value) or downward through the bid threshold (amount = quote value).
func (t *RegimeTracker) Observe(positionKey string, sideRatio, avgPrice, baseValue, quoteValue float64) *types.PriceHistoryRecord {
	prior, seen := t.lastRatio[positionKey]
	t.lastRatio[positionKey] = sideRatio

	var record *types.PriceHistoryRecord

	if !seen {
		switch {
		case sideRatio >= t.askThreshold:
			record = t.newRecord(positionKey, types.RegimeAsk, avgPrice, baseValue)
		case sideRatio <= t.bidThreshold:
			record = t.newRecord(positionKey, types.RegimeBid, avgPrice, quoteValue)
		}
		if record != nil {
			t.logger.Info().
				Str("position", positionKey).
				Str("regime", string(record.PriceType)).
				Float64("sideRatio", sideRatio).
				Msg("Seeded regime history for newly observed single-sided position")
		}
		return record
	}

	if prior < t.askThreshold && sideRatio >= t.askThreshold {
		record = t.newRecord(positionKey, types.RegimeAsk, avgPrice, baseValue)
	} else if prior > t.bidThreshold && sideRatio <= t.bidThreshold {
		record = t.newRecord(positionKey, types.RegimeBid, avgPrice, quoteValue)
	}

	if record != nil {
		t.logger.Info().
			Str("position", positionKey).
			Str("regime", string(record.PriceType)).
			Float64("priorRatio", prior).
			Float64("sideRatio", sideRatio).
			Float64("avgPrice", avgPrice).
			Msg("Regime transition detected")
	}

	return record
}

// Evict removes tracker entries for positions absent from the current tick's
// key set and returns how many were removed.
func (t *RegimeTracker) Evict(present map[string]struct{}) int {
	evicted := 0
	for key := range t.lastRatio {
		if _, ok := present[key]; !ok {
			delete(t.lastRatio, key)
			evicted++
		}
	}
	if evicted > 0 {
		t.logger.Debug().Int("evicted", evicted).Msg("Evicted regime entries for vanished positions")
	}
	return evicted
}

// Tracked returns the number of positions currently tracked.
func (t *RegimeTracker) Tracked() int {
	return len(t.lastRatio)
}

func (t *RegimeTracker) newRecord(positionKey string, priceType types.Regime, avgPrice, amount float64) *types.PriceHistoryRecord {
	return &types.PriceHistoryRecord{
		PositionKey: positionKey,
		Timestamp:   t.now(),
		PriceType:   priceType,
		AvgPrice:    avgPrice,
		Amount:      amount,
	}
}
