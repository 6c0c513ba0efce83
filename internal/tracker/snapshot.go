/*

This file maintains the value-tracking pipeline: every tick it computes a
fresh snapshot of all position valuations, persists a durable copy at most
once per snapshot interval, and keeps the per-day aggregate row (open, close,
high, low, pnl) up to date alongside each persisted snapshot.

*/

package tracker

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/blm-labs/blm/internal/analyzer"
	"github.com/blm-labs/blm/internal/logger"
	"github.com/blm-labs/blm/internal/types"
)

// SnapshotPersistence is the durable-store surface the snapshot pipeline
// writes through. Store availability is best-effort: every write failure is
// logged and swallowed so read paths never fail because of it.
type SnapshotPersistence interface {
	InsertSnapshot(snap types.Snapshot) (int64, error)
	LatestSnapshotTime() (time.Time, bool, error)
	GetDailyAggregate(date string) (*types.DailyAggregate, error)
	LatestDailyCloseBefore(date string) (float64, bool, error)
	UpsertDailyAggregate(agg types.DailyAggregate) error
	// UpdateDailyOperationCount recomputes the day's operation count from the
	// operations table. Called when a new day's row is created, to pick up
	// operations recorded before the day's first persisted snapshot.
	UpdateDailyOperationCount(date string) error
	InsertPriceHistory(rec types.PriceHistoryRecord) error
}

// SnapshotStore computes per-tick snapshots and throttles their persistence.
type SnapshotStore struct {
	logger        zerolog.Logger
	db            SnapshotPersistence
	regimes       *RegimeTracker
	params        types.StrategyParameters
	baseDecimals  int
	quoteDecimals int

	now           func() time.Time
	lastPersisted time.Time
	latest        *types.Snapshot
}

// NewSnapshotStore creates the store and bootstraps the persistence throttle
// from the most recent durable snapshot, so a restart does not immediately
// write a redundant row.
func NewSnapshotStore(db SnapshotPersistence, regimes *RegimeTracker, params types.StrategyParameters, baseDecimals, quoteDecimals int) *SnapshotStore {
	s := &SnapshotStore{
		logger:        logger.GetForComponent("snapshot_store"),
		db:            db,
		regimes:       regimes,
		params:        params,
		baseDecimals:  baseDecimals,
		quoteDecimals: quoteDecimals,
		now:           time.Now,
	}

	if ts, ok, err := db.LatestSnapshotTime(); err != nil {
		s.logger.Warn().Err(err).Msg("Could not bootstrap last persisted snapshot time; first evaluation will persist")
	} else if ok {
		s.lastPersisted = ts
		s.logger.Info().Time("lastPersisted", ts).Msg("Bootstrapped snapshot throttle from durable store")
	}

	return s
}

// Evaluate values all positions at the current price and returns a freshly
// computed snapshot. Persistence is a side effect, never a precondition of
// the return value: regime history is recorded unconditionally, while the
// bulk snapshot row and the daily aggregate are written only when the
// snapshot interval has elapsed.
func (s *SnapshotStore) Evaluate(positions []types.Position, currentPrice float64) types.Snapshot {
	now := s.now()

	snap := types.Snapshot{
		Timestamp:    now,
		CurrentPrice: currentPrice,
		Positions:    make([]types.PositionValue, 0, len(positions)),
	}

	present := make(map[string]struct{}, len(positions))
	for _, pos := range positions {
		pv := analyzer.BuildPositionValue(pos, currentPrice, s.baseDecimals, s.quoteDecimals, s.params)
		snap.TotalValue += pv.TotalValue
		snap.Positions = append(snap.Positions, pv)
		present[pos.Key] = struct{}{}

		// Regime side effects are not throttled.
		if rec := s.regimes.Observe(pv.Key, pv.SideRatio, pv.WeightedAvgPrice, pv.BaseValue, pv.QuoteValue); rec != nil {
			if err := s.db.InsertPriceHistory(*rec); err != nil {
				s.logger.Error().Err(err).Str("position", pv.Key).Msg("Failed to persist price history record")
			}
		}
	}
	s.regimes.Evict(present)

	s.latest = &snap

	interval := time.Duration(s.params.SnapshotIntervalMinutes * float64(time.Minute))
	if now.Sub(s.lastPersisted) < interval {
		s.logger.Debug().
			Float64("totalValue", snap.TotalValue).
			Time("lastPersisted", s.lastPersisted).
			Msg("Snapshot computed; durable write throttled")
		return snap
	}

	if _, err := s.db.InsertSnapshot(snap); err != nil {
		s.logger.Error().Err(err).Msg("Failed to persist snapshot; valuation still returned")
		return snap
	}
	s.lastPersisted = now

	s.upsertDailyAggregate(now, snap.TotalValue)

	s.logger.Info().
		Float64("totalValue", snap.TotalValue).
		Float64("currentPrice", currentPrice).
		Int("positions", len(snap.Positions)).
		Msg("Snapshot persisted")

	return snap
}

// Latest returns the most recently computed snapshot, persisted or not.
func (s *SnapshotStore) Latest() *types.Snapshot {
	return s.latest
}

// upsertDailyAggregate creates or extends the current calendar day's rollup.
// A new day opens at the previous day's close (or the current value when no
// prior day exists); pnl is always recomputed from the unchanged open.
func (s *SnapshotStore) upsertDailyAggregate(now time.Time, totalValue float64) {
	date := now.UTC().Format("2006-01-02")

	existing, err := s.db.GetDailyAggregate(date)
	if err != nil {
		s.logger.Error().Err(err).Str("date", date).Msg("Failed to read daily aggregate")
		return
	}

	var agg types.DailyAggregate
	if existing == nil {
		openValue := totalValue
		if prevClose, ok, err := s.db.LatestDailyCloseBefore(date); err != nil {
			s.logger.Error().Err(err).Str("date", date).Msg("Failed to read previous daily close; opening at current value")
		} else if ok {
			openValue = prevClose
		}

		agg = types.DailyAggregate{
			Date:       date,
			OpenValue:  openValue,
			CloseValue: totalValue,
			HighValue:  totalValue,
			LowValue:   totalValue,
		}
	} else {
		agg = *existing
		agg.CloseValue = totalValue
		if totalValue > agg.HighValue {
			agg.HighValue = totalValue
		}
		if totalValue < agg.LowValue {
			agg.LowValue = totalValue
		}
	}

	agg.PnL = agg.CloseValue - agg.OpenValue
	if agg.OpenValue > 0 {
		agg.PnLPercent = agg.PnL / agg.OpenValue * 100
	} else {
		agg.PnLPercent = 0
	}

	if err := s.db.UpsertDailyAggregate(agg); err != nil {
		s.logger.Error().Err(err).Str("date", date).Msg("Failed to upsert daily aggregate")
		return
	}

	// A new day's row must fold in operations recorded earlier in the day,
	// before this first persisted snapshot existed.
	if existing == nil {
		if err := s.db.UpdateDailyOperationCount(date); err != nil {
			s.logger.Error().Err(err).Str("date", date).Msg("Failed to backfill operation count for new day")
		}
	}

	s.logger.Debug().
		Str("date", date).
		Float64("open", agg.OpenValue).
		Float64("close", agg.CloseValue).
		Float64("pnl", agg.PnL).
		Msg("Daily aggregate updated")
}
