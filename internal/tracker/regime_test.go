package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blm-labs/blm/internal/types"
)

var regimeParams = types.StrategyParameters{
	AskRegimeThreshold: 0.95,
	BidRegimeThreshold: 0.05,
}

func newTestTracker() *RegimeTracker {
	tr := NewRegimeTracker(regimeParams)
	tr.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return tr
}

func TestRegimeTracker_FirstObservationMixedSeedsNothing(t *testing.T) {
	tr := newTestTracker()

	rec := tr.Observe("pos-1", 0.5, 150, 300, 300)

	assert.Nil(t, rec)
	assert.Equal(t, 1, tr.Tracked())
}

func TestRegimeTracker_FirstObservationSingleSidedSeedsRecord(t *testing.T) {
	tr := newTestTracker()

	rec := tr.Observe("pos-1", 1.0, 150, 600, 0)

	require.NotNil(t, rec)
	assert.Equal(t, types.RegimeAsk, rec.PriceType)
	assert.Equal(t, "pos-1", rec.PositionKey)
	assert.Equal(t, 150.0, rec.AvgPrice)
	assert.Equal(t, 600.0, rec.Amount)
}

func TestRegimeTracker_FirstObservationBidSideSeedsQuoteAmount(t *testing.T) {
	tr := newTestTracker()

	rec := tr.Observe("pos-1", 0.0, 150, 0, 450)

	require.NotNil(t, rec)
	assert.Equal(t, types.RegimeBid, rec.PriceType)
	assert.Equal(t, 450.0, rec.Amount)
}

func TestRegimeTracker_CrossingIntoAskEmitsRecord(t *testing.T) {
	tr := newTestTracker()

	assert.Nil(t, tr.Observe("pos-1", 0.5, 150, 300, 300))

	rec := tr.Observe("pos-1", 0.97, 151, 590, 10)
	require.NotNil(t, rec)
	assert.Equal(t, types.RegimeAsk, rec.PriceType)
	assert.Equal(t, 590.0, rec.Amount)
}

func TestRegimeTracker_CrossingIntoBidEmitsRecord(t *testing.T) {
	tr := newTestTracker()

	assert.Nil(t, tr.Observe("pos-1", 0.4, 150, 240, 360))

	rec := tr.Observe("pos-1", 0.02, 149, 10, 590)
	require.NotNil(t, rec)
	assert.Equal(t, types.RegimeBid, rec.PriceType)
	assert.Equal(t, 590.0, rec.Amount)
}

func TestRegimeTracker_StayingAboveThresholdEmitsNothing(t *testing.T) {
	tr := newTestTracker()

	tr.Observe("pos-1", 0.97, 150, 590, 10)

	// Still ask-side: no new transition.
	assert.Nil(t, tr.Observe("pos-1", 0.99, 151, 595, 5))
	assert.Nil(t, tr.Observe("pos-1", 0.96, 151, 580, 20))
}

func TestRegimeTracker_ReturnToMixedThenRecross(t *testing.T) {
	tr := newTestTracker()

	tr.Observe("pos-1", 0.97, 150, 590, 10)
	assert.Nil(t, tr.Observe("pos-1", 0.5, 150, 300, 300))

	rec := tr.Observe("pos-1", 0.96, 152, 585, 15)
	require.NotNil(t, rec)
	assert.Equal(t, types.RegimeAsk, rec.PriceType)
}

func TestRegimeTracker_EvictRemovesVanishedPositions(t *testing.T) {
	tr := newTestTracker()

	tr.Observe("pos-1", 0.5, 150, 300, 300)
	tr.Observe("pos-2", 0.5, 150, 300, 300)
	tr.Observe("pos-3", 0.5, 150, 300, 300)
	require.Equal(t, 3, tr.Tracked())

	evicted := tr.Evict(map[string]struct{}{"pos-2": {}})

	assert.Equal(t, 2, evicted)
	assert.Equal(t, 1, tr.Tracked())
}

func TestRegimeTracker_EvictedPositionSeedsAgain(t *testing.T) {
	tr := newTestTracker()

	tr.Observe("pos-1", 0.97, 150, 590, 10)
	tr.Evict(map[string]struct{}{})
	require.Equal(t, 0, tr.Tracked())

	// Re-appearing single-sided counts as a fresh first observation.
	rec := tr.Observe("pos-1", 0.97, 150, 590, 10)
	require.NotNil(t, rec)
	assert.Equal(t, types.RegimeAsk, rec.PriceType)
}
