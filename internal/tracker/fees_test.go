package tracker

import (
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blm-labs/blm/internal/types"
)

var feeParams = types.StrategyParameters{
	GlobalClaimThreshold:    5.0,
	PerPositionClaimMinimum: 0.1,
	ReinvestFees:            true,
}

// fakeFeeDB is an in-memory FeePersistence.
type fakeFeeDB struct {
	claimed     []types.ClaimedFeeRecord
	accumulated map[string][2]sdkmath.Int // base, quote per position
	clearedArgs []types.TokenSide
}

func newFakeFeeDB() *fakeFeeDB {
	return &fakeFeeDB{accumulated: make(map[string][2]sdkmath.Int)}
}

func (f *fakeFeeDB) InsertClaimedFee(rec types.ClaimedFeeRecord) error {
	f.claimed = append(f.claimed, rec)
	return nil
}

func (f *fakeFeeDB) AddAccumulatedFee(positionKey string, base, quote sdkmath.Int) error {
	entry, ok := f.accumulated[positionKey]
	if !ok {
		entry = [2]sdkmath.Int{sdkmath.ZeroInt(), sdkmath.ZeroInt()}
	}
	entry[0] = entry[0].Add(base)
	entry[1] = entry[1].Add(quote)
	f.accumulated[positionKey] = entry
	return nil
}

func (f *fakeFeeDB) SumAccumulated(token types.TokenSide) (sdkmath.Int, error) {
	total := sdkmath.ZeroInt()
	for _, entry := range f.accumulated {
		if token == types.TokenBase {
			total = total.Add(entry[0])
		} else {
			total = total.Add(entry[1])
		}
	}
	return total, nil
}

func (f *fakeFeeDB) ClearAccumulated(token types.TokenSide) error {
	f.clearedArgs = append(f.clearedArgs, token)
	for key, entry := range f.accumulated {
		if token == types.TokenBase {
			entry[0] = sdkmath.ZeroInt()
		} else {
			entry[1] = sdkmath.ZeroInt()
		}
		if entry[0].IsZero() && entry[1].IsZero() {
			delete(f.accumulated, key)
		} else {
			f.accumulated[key] = entry
		}
	}
	return nil
}

func (f *fakeFeeDB) ClaimedFeeTotalSince(since time.Time) (float64, error) {
	total := 0.0
	for _, rec := range f.claimed {
		if !rec.Timestamp.Before(since) {
			total += rec.TotalClaimedValue
		}
	}
	return total, nil
}

func TestFeeLedger_GlobalThresholdGate(t *testing.T) {
	l := NewFeeAccrualLedger(newFakeFeeDB(), feeParams)

	assert.False(t, l.ShouldClaim(3.0))
	assert.False(t, l.ShouldClaim(5.0)) // strictly greater than
	assert.True(t, l.ShouldClaim(6.0))
}

func TestFeeLedger_PerPositionMinimum(t *testing.T) {
	l := NewFeeAccrualLedger(newFakeFeeDB(), feeParams)

	assert.False(t, l.ShouldClaimPosition(0.05))
	assert.True(t, l.ShouldClaimPosition(0.1)) // at least the minimum
	assert.True(t, l.ShouldClaimPosition(5.95))
}

func TestFeeLedger_ClaimScenario(t *testing.T) {
	// Aggregate $6 opens the pass; the $0.05 position is dust, the $5.95
	// position is claimed.
	l := NewFeeAccrualLedger(newFakeFeeDB(), feeParams)

	require.True(t, l.ShouldClaim(6.0))
	assert.False(t, l.ShouldClaimPosition(0.05))
	assert.True(t, l.ShouldClaimPosition(5.95))
}

func TestFeeLedger_RecordClaimReinvests(t *testing.T) {
	db := newFakeFeeDB()
	l := NewFeeAccrualLedger(db, feeParams)

	rec := types.ClaimedFeeRecord{
		Timestamp:         time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		PositionKey:       "pos-1",
		TxRef:             "tx-1",
		ClaimedBase:       sdkmath.NewInt(5_000_000),
		ClaimedQuote:      sdkmath.NewInt(2_000_000),
		TotalClaimedValue: 2.75,
	}

	require.NoError(t, l.RecordClaim(rec))

	assert.Len(t, db.claimed, 1)
	entry := db.accumulated["pos-1"]
	assert.Equal(t, sdkmath.NewInt(5_000_000), entry[0])
	assert.Equal(t, sdkmath.NewInt(2_000_000), entry[1])
}

func TestFeeLedger_RecordClaimWithoutReinvestment(t *testing.T) {
	db := newFakeFeeDB()
	params := feeParams
	params.ReinvestFees = false
	l := NewFeeAccrualLedger(db, params)

	rec := types.ClaimedFeeRecord{PositionKey: "pos-1", TxRef: "tx-1", ClaimedBase: sdkmath.NewInt(100), ClaimedQuote: sdkmath.NewInt(200)}
	require.NoError(t, l.RecordClaim(rec))

	assert.Len(t, db.claimed, 1)
	assert.Empty(t, db.accumulated)
}

func TestFeeLedger_ConsumeAccumulatedDrainsOneSide(t *testing.T) {
	db := newFakeFeeDB()
	l := NewFeeAccrualLedger(db, feeParams)

	require.NoError(t, db.AddAccumulatedFee("pos-1", sdkmath.NewInt(100), sdkmath.NewInt(300)))
	require.NoError(t, db.AddAccumulatedFee("pos-2", sdkmath.NewInt(50), sdkmath.NewInt(200)))

	total, err := l.ConsumeAccumulated(types.TokenQuote)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(500), total)

	// Base balances survive the quote drain.
	baseLeft, err := db.SumAccumulated(types.TokenBase)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(150), baseLeft)

	quoteLeft, err := db.SumAccumulated(types.TokenQuote)
	require.NoError(t, err)
	assert.True(t, quoteLeft.IsZero())
}

func TestFeeLedger_AccumulatedBalanceDoesNotDrain(t *testing.T) {
	db := newFakeFeeDB()
	l := NewFeeAccrualLedger(db, feeParams)

	require.NoError(t, db.AddAccumulatedFee("pos-1", sdkmath.ZeroInt(), sdkmath.NewInt(25_000_000)))

	total, err := l.AccumulatedBalance(types.TokenQuote)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(25_000_000), total)

	// Reading the balance leaves the rows untouched.
	assert.Empty(t, db.clearedArgs)
	still, err := db.SumAccumulated(types.TokenQuote)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(25_000_000), still)
}

func TestFeeLedger_ConsumeAccumulatedEmptySkipsClear(t *testing.T) {
	db := newFakeFeeDB()
	l := NewFeeAccrualLedger(db, feeParams)

	total, err := l.ConsumeAccumulated(types.TokenBase)
	require.NoError(t, err)
	assert.True(t, total.IsZero())
	assert.Empty(t, db.clearedArgs)
}

func TestFeeLedger_FeeAPY(t *testing.T) {
	db := newFakeFeeDB()
	l := NewFeeAccrualLedger(db, feeParams)
	now := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	db.claimed = append(db.claimed,
		types.ClaimedFeeRecord{Timestamp: now.AddDate(0, 0, -3), TotalClaimedValue: 4},
		types.ClaimedFeeRecord{Timestamp: now.AddDate(0, 0, -30), TotalClaimedValue: 100}, // outside the window
	)

	// (4 claimed + 3 unclaimed) / 1000 × 365/7 × 100
	expected := 7.0 / 1000 * (365.0 / 7) * 100
	assert.InDelta(t, expected, l.FeeAPY(7, 3, 1000), 1e-9)
}

func TestFeeLedger_FeeAPYGuards(t *testing.T) {
	l := NewFeeAccrualLedger(newFakeFeeDB(), feeParams)

	assert.Equal(t, 0.0, l.FeeAPY(0, 10, 1000))
	assert.Equal(t, 0.0, l.FeeAPY(7, 10, 0))
}

func TestFeeLedger_FeeAPYCapped(t *testing.T) {
	db := newFakeFeeDB()
	l := NewFeeAccrualLedger(db, feeParams)

	// Huge unclaimed against a tiny portfolio hits the display cap.
	assert.Equal(t, 9999.0, l.FeeAPY(7, 10_000, 1))
}

func TestAnnualizedFeeAPY(t *testing.T) {
	// (4 claimed + 3 unclaimed) / 1000 × 365/7 × 100
	expected := 7.0 / 1000 * (365.0 / 7) * 100
	assert.InDelta(t, expected, AnnualizedFeeAPY(7, 4, 3, 1000), 1e-9)

	assert.Equal(t, 0.0, AnnualizedFeeAPY(0, 4, 3, 1000))
	assert.Equal(t, 0.0, AnnualizedFeeAPY(7, 4, 3, 0))
	assert.Equal(t, 9999.0, AnnualizedFeeAPY(7, 10_000, 0, 1))
}
