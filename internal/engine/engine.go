/*

This file drives the evaluation loop. Each tick pulls position state and the
active price, runs the valuation/tracking pipeline, claims fees when the
aggregate threshold is reached, and executes any warranted redeploys.
Positions are processed strictly sequentially; a stop signal prevents new
ticks but never interrupts a tick already inside a two-phase mutation.

*/

package engine

import (
	"context"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/blm-labs/blm/internal/analyzer"
	"github.com/blm-labs/blm/internal/logger"
	"github.com/blm-labs/blm/internal/numeric"
	"github.com/blm-labs/blm/internal/source"
	"github.com/blm-labs/blm/internal/tracker"
	"github.com/blm-labs/blm/internal/types"
)

const (
	DEFAULT_STRATEGY_CONFIG_NAME    = "default_blm_strategy"
	DEFAULT_STRATEGY_CONFIG_VERSION = 1
)

// OperationPersistence is the durable-store surface the engine records
// rebalance outcomes through.
type OperationPersistence interface {
	// InsertOperation appends an operation row (status "withdrawn" between
	// the two phases) and returns its id.
	InsertOperation(op types.Operation) (int64, error)
	// CompleteOperation promotes an operation to "completed" with its
	// after-valuation and redeploy transaction reference.
	CompleteOperation(id int64, afterValue float64, txRef string) error
	// UpdateDailyOperationCount recomputes the day's operation count from
	// the operations table.
	UpdateDailyOperationCount(date string) error
	// IncrementTickNumber advances the persisted tick counter.
	IncrementTickNumber() (int, error)
}

// Engine combines the decision logic with the tracking pipeline and the
// external position source.
type Engine struct {
	logger    zerolog.Logger
	source    source.PositionSource
	executor  *Executor
	limiter   *rate.Limiter
	snapshots *tracker.SnapshotStore
	fees      *tracker.FeeAccrualLedger
	ops       OperationPersistence
	params    types.StrategyParameters
}

// Config holds the dependencies for creating a new Engine instance.
type Config struct {
	Source     source.PositionSource
	Snapshots  *tracker.SnapshotStore
	Fees       *tracker.FeeAccrualLedger
	Operations OperationPersistence
	Params     types.StrategyParameters
	// SourceRatePerSecond caps calls against the position source.
	SourceRatePerSecond float64
	Settle              SettlePolicy
}

// New creates an Engine with dependency injection.
func New(cfg Config) (*Engine, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("position source cannot be nil")
	}
	if cfg.Snapshots == nil {
		return nil, fmt.Errorf("snapshot store cannot be nil")
	}
	if cfg.Fees == nil {
		return nil, fmt.Errorf("fee ledger cannot be nil")
	}
	if cfg.Operations == nil {
		return nil, fmt.Errorf("operation persistence cannot be nil")
	}
	if cfg.SourceRatePerSecond <= 0 {
		cfg.SourceRatePerSecond = 4
	}

	limiter := rate.NewLimiter(rate.Limit(cfg.SourceRatePerSecond), 1)

	return &Engine{
		logger:    logger.GetForComponent("engine"),
		source:    cfg.Source,
		executor:  NewExecutor(cfg.Source, limiter, cfg.Settle),
		limiter:   limiter,
		snapshots: cfg.Snapshots,
		fees:      cfg.Fees,
		ops:       cfg.Operations,
		params:    cfg.Params,
	}, nil
}

// RunLoop starts the main evaluation loop with the specified interval. The
// first tick runs immediately; cancellation stops the loop before the next
// tick starts.
func (e *Engine) RunLoop(ctx context.Context, interval time.Duration) {
	e.logger.Info().Dur("interval", interval).Msg("Starting evaluation loop")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.RunTick(ctx)

	for {
		select {
		case <-ctx.Done():
			e.logger.Info().Msg("Evaluation loop stopped due to context cancellation")
			return
		case <-ticker.C:
			e.RunTick(ctx)
		}
	}
}

// RunTick executes one complete evaluation tick.
func (e *Engine) RunTick(ctx context.Context) {
	tickStart := time.Now()

	// Unique tick ID for tracing logs across the entire tick.
	tickLogger := e.logger.With().Str("tick_id", uuid.New().String()).Logger()

	tickNumber, err := e.ops.IncrementTickNumber()
	if err != nil {
		tickLogger.Error().Err(err).Msg("Failed to increment tick counter, using timestamp fallback")
		tickNumber = int(time.Now().Unix() % 1000000)
	}
	tickLogger = tickLogger.With().Int("tick", tickNumber).Logger()
	tickLogger.Info().Msg("--- Starting evaluation tick ---")

	// Mutations must survive a stop signal arriving mid-tick: partial
	// completion is recovered by re-observation, not by cancellation.
	mutCtx := context.WithoutCancel(ctx)

	if err := e.limiter.Wait(ctx); err != nil {
		return
	}
	positions, err := e.source.GetPositions(ctx)
	if err != nil {
		tickLogger.Error().Err(err).Msg("Tick aborted: failed to fetch positions")
		return
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return
	}
	currentPrice, err := e.source.GetActivePrice(ctx)
	if err != nil {
		tickLogger.Error().Err(err).Msg("Tick aborted: failed to fetch active price")
		return
	}

	snap := e.snapshots.Evaluate(positions, currentPrice)
	tickLogger.Info().
		Int("positions", len(positions)).
		Float64("currentPrice", currentPrice).
		Float64("totalValue", snap.TotalValue).
		Msg("Positions valued")

	valueByKey := make(map[string]types.PositionValue, len(snap.Positions))
	for _, pv := range snap.Positions {
		valueByKey[pv.Key] = pv
	}

	e.runClaimPass(mutCtx, tickLogger, positions, valueByKey, currentPrice)

	for _, pos := range positions {
		decision := Decide(pos, currentPrice, e.params)
		if decision.None() {
			if decision.Reason != "" {
				tickLogger.Debug().Str("position", pos.Key).Str("reason", decision.Reason).Msg("Rebalance gated")
			}
			continue
		}
		e.executeRebalance(mutCtx, tickLogger, pos, decision, valueByKey[pos.Key].TotalValue)
	}

	tickLogger.Info().Str("tickDuration", time.Since(tickStart).String()).Msg("--- Evaluation tick completed ---")
}

// runClaimPass claims fees when the aggregate unclaimed value clears the
// global threshold, skipping positions below the per-position minimum. A
// per-position failure is logged and the pass continues.
func (e *Engine) runClaimPass(ctx context.Context, tickLogger zerolog.Logger, positions []types.Position, valueByKey map[string]types.PositionValue, currentPrice float64) {
	aggregate := 0.0
	for _, pv := range valueByKey {
		aggregate += pv.FeeValue
	}
	if !e.fees.ShouldClaim(aggregate) {
		return
	}

	tickLogger.Info().Float64("aggregateUnclaimed", aggregate).Msg("Aggregate fee threshold reached, running claim pass")

	for _, pos := range positions {
		pv := valueByKey[pos.Key]
		if !e.fees.ShouldClaimPosition(pv.FeeValue) {
			tickLogger.Debug().
				Str("position", pos.Key).
				Float64("unclaimedValue", pv.FeeValue).
				Msg("Skipping fee claim below per-position minimum")
			continue
		}

		txs, err := e.executor.ClaimFees(ctx, pos.Key)
		if err != nil {
			tickLogger.Error().Err(err).Str("position", pos.Key).Msg("Fee claim failed; continuing with next position")
			continue
		}

		txRef := ""
		if len(txs) > 0 {
			txRef = txs[0]
		}

		claimedBaseValue := numeric.MustFloat64(pos.UnclaimedFeeBase, e.source.BaseDecimals()) * currentPrice
		claimedQuoteValue := numeric.MustFloat64(pos.UnclaimedFeeQuote, e.source.QuoteDecimals())

		rec := types.ClaimedFeeRecord{
			Timestamp:         time.Now(),
			PositionKey:       pos.Key,
			TxRef:             txRef,
			ClaimedBase:       pos.UnclaimedFeeBase,
			ClaimedQuote:      pos.UnclaimedFeeQuote,
			ClaimedBaseValue:  claimedBaseValue,
			ClaimedQuoteValue: claimedQuoteValue,
			TotalClaimedValue: claimedBaseValue + claimedQuoteValue,
			PriceAtClaim:      currentPrice,
		}
		if err := e.fees.RecordClaim(rec); err != nil {
			tickLogger.Error().Err(err).Str("position", pos.Key).Msg("Failed to record fee claim")
		}
	}
}

// executeRebalance runs the two-phase redeploy for one position and records
// the outcome. Phase 1 failure leaves the position untouched; phase 2
// failure leaves it fully withdrawn with the operation row at "withdrawn",
// to be detected and retried by the next tick's observation.
func (e *Engine) executeRebalance(ctx context.Context, tickLogger zerolog.Logger, pos types.Position, decision types.RebalanceDecision, beforeValue float64) {
	token := RedeployToken(decision.Action)

	// The accumulated balance is only read here; it is consumed after the
	// redeploy lands, so a failed two-phase run leaves it intact.
	amount := decision.Amount
	reinvested := sdkmath.ZeroInt()
	if e.params.ReinvestFees {
		extra, err := e.fees.AccumulatedBalance(token)
		if err != nil {
			tickLogger.Error().Err(err).Str("position", pos.Key).Msg("Failed to read accumulated fees; redeploying without them")
		} else if extra.IsPositive() {
			reinvested = extra
			amount = amount.Add(extra)
			tickLogger.Info().
				Str("position", pos.Key).
				Str("reinvested", extra.String()).
				Msg("Folding accumulated fees into redeploy")
		}
	}

	tickLogger.Info().
		Str("position", pos.Key).
		Str("action", string(decision.Action)).
		Str("amount", amount.String()).
		Str("reason", decision.Reason).
		Float64("beforeValue", beforeValue).
		Msg("Executing rebalance")

	removeTxs, err := e.executor.RemoveAll(ctx, pos)
	if err != nil {
		tickLogger.Error().Err(err).Str("position", pos.Key).Msg("Rebalance aborted before withdrawal; continuing with next position")
		return
	}

	removeTxRef := ""
	if len(removeTxs) > 0 {
		removeTxRef = removeTxs[0]
	}

	op := types.Operation{
		Timestamp:       time.Now(),
		PositionKey:     pos.Key,
		Action:          decision.Action,
		Status:          types.OperationWithdrawn,
		BeforeValue:     beforeValue,
		AmountProcessed: amount,
		TxRef:           removeTxRef,
	}
	opID, err := e.ops.InsertOperation(op)
	if err != nil {
		tickLogger.Error().Err(err).Str("position", pos.Key).Msg("Failed to persist withdrawn operation record")
	}

	addTxs, err := e.executor.Redeploy(ctx, pos, token, amount)
	if err != nil {
		tickLogger.Error().Err(err).Str("position", pos.Key).Msg("Position left fully withdrawn; next tick will re-evaluate")
		return
	}

	addTxRef := ""
	if len(addTxs) > 0 {
		addTxRef = addTxs[0]
	}

	if reinvested.IsPositive() {
		if _, err := e.fees.ConsumeAccumulated(token); err != nil {
			tickLogger.Error().Err(err).Str("position", pos.Key).Msg("Failed to clear reinvested accumulated fees")
		}
	}

	afterValue := e.valueAfter(ctx, tickLogger, pos.Key, beforeValue)

	if opID > 0 {
		if err := e.ops.CompleteOperation(opID, afterValue, addTxRef); err != nil {
			tickLogger.Error().Err(err).Str("position", pos.Key).Msg("Failed to complete operation record")
		}
	}
	if err := e.ops.UpdateDailyOperationCount(time.Now().UTC().Format("2006-01-02")); err != nil {
		tickLogger.Error().Err(err).Msg("Failed to update daily operation count")
	}

	tickLogger.Info().
		Str("position", pos.Key).
		Str("action", string(decision.Action)).
		Float64("beforeValue", beforeValue).
		Float64("afterValue", afterValue).
		Msg("Rebalance completed")
}

// valueAfter re-fetches the position and values it immediately after a
// redeploy. Falls back to the before-value when the fetch fails.
func (e *Engine) valueAfter(ctx context.Context, tickLogger zerolog.Logger, positionKey string, fallback float64) float64 {
	if err := e.limiter.Wait(ctx); err != nil {
		return fallback
	}
	positions, err := e.source.GetPositions(ctx)
	if err != nil {
		tickLogger.Error().Err(err).Str("position", positionKey).Msg("Failed to fetch positions for after-valuation, using before-value")
		return fallback
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return fallback
	}
	price, err := e.source.GetActivePrice(ctx)
	if err != nil {
		tickLogger.Error().Err(err).Str("position", positionKey).Msg("Failed to fetch price for after-valuation, using before-value")
		return fallback
	}

	for _, pos := range positions {
		if pos.Key == positionKey {
			pv := analyzer.BuildPositionValue(pos, price, e.source.BaseDecimals(), e.source.QuoteDecimals(), e.params)
			return pv.TotalValue
		}
	}

	tickLogger.Warn().Str("position", positionKey).Msg("Position missing from after-valuation fetch, using before-value")
	return fallback
}
