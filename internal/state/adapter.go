package state

import (
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/blm-labs/blm/internal/types"
)

// Store adapts the package-level persistence functions to the narrow
// interfaces the tracker and engine components consume.
type Store struct{}

func NewStore() *Store {
	return &Store{}
}

func (Store) InsertSnapshot(snap types.Snapshot) (int64, error) {
	return SaveSnapshot(snap)
}

func (Store) LatestSnapshotTime() (time.Time, bool, error) {
	return GetLatestSnapshotTime()
}

func (Store) GetDailyAggregate(date string) (*types.DailyAggregate, error) {
	return GetDailyAggregate(date)
}

func (Store) LatestDailyCloseBefore(date string) (float64, bool, error) {
	return GetLatestDailyCloseBefore(date)
}

func (Store) UpsertDailyAggregate(agg types.DailyAggregate) error {
	return UpsertDailyAggregate(agg)
}

func (Store) InsertPriceHistory(rec types.PriceHistoryRecord) error {
	return SavePriceHistory(rec)
}

func (Store) RecentDailyAggregates(days int) ([]types.DailyAggregate, error) {
	return GetRecentDailyAggregates(days)
}

func (Store) InsertClaimedFee(rec types.ClaimedFeeRecord) error {
	return SaveClaimedFee(rec)
}

func (Store) AddAccumulatedFee(positionKey string, base, quote sdkmath.Int) error {
	return AddAccumulatedFee(positionKey, base, quote)
}

func (Store) SumAccumulated(token types.TokenSide) (sdkmath.Int, error) {
	return SumAccumulated(token)
}

func (Store) ClearAccumulated(token types.TokenSide) error {
	return ClearAccumulated(token)
}

func (Store) ClaimedFeeTotalSince(since time.Time) (float64, error) {
	return GetClaimedFeeTotalSince(since)
}

func (Store) InsertOperation(op types.Operation) (int64, error) {
	return SaveOperation(op)
}

func (Store) CompleteOperation(id int64, afterValue float64, txRef string) error {
	return CompleteOperation(id, afterValue, txRef)
}

func (Store) UpdateDailyOperationCount(date string) error {
	return UpdateDailyOperationCount(date)
}

func (Store) IncrementTickNumber() (int, error) {
	return IncrementTickNumber()
}
