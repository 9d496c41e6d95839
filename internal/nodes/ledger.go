package nodes

import (
	"context"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/engine"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/model"
)

// openingBalance reads each entity's closing balances of the source period.
func openingBalance(ctx context.Context, s *engine.Scope, c any) (engine.Output, error) {
	cfg := c.(*OpeningBalanceConfig)
	ref := s.Ref()

	source := cfg.SourcePeriod
	if source == "" {
		prev, err := model.PreviousPeriod(s.Period())
		if err != nil {
			return engine.Output{}, engine.NewNodeError(engine.ErrCodeInvalidConfiguration, s.NodeID(), "%v", err)
		}
		source = prev
	}
	codes, err := entitiesOf(s, cfg.Entities)
	if err != nil {
		return engine.Output{}, err
	}

	balances := make(Balances, len(codes))
	openingRE := make(engine.Amounts, len(codes))
	for _, code := range codes {
		balances[code] = engine.Amounts(ref.BalancesFor(code, source))
		openingRE[code] = ref.SumByCategory(code, source, model.CategoryRetainedEarnings)
	}
	return engine.Output{Values: map[string]any{
		OutOpeningBalances: balances,
		OutOpeningRE:       openingRE,
	}}, nil
}

// profitLoss derives the income statement subtotals per entity.
func profitLoss(ctx context.Context, s *engine.Scope, c any) (engine.Output, error) {
	cfg := c.(*ProfitLossConfig)
	ref := s.Ref()
	period := s.Period()

	codes, err := entitiesOf(s, cfg.Entities)
	if err != nil {
		return engine.Output{}, err
	}
	profit := make(engine.Amounts, len(codes))
	gross := make(engine.Amounts, len(codes))
	operating := make(engine.Amounts, len(codes))
	for _, code := range codes {
		revenue := ref.SumByClass(code, period, model.ClassRevenue)
		expenses := ref.SumByClass(code, period, model.ClassExpense)
		cos := ref.SumByCategory(code, period, model.CategoryCostOfSales)
		opex := ref.SumByCategory(code, period, model.CategoryOperatingExpense)

		gross[code] = revenue.Sub(cos)
		operating[code] = gross[code].Sub(opex)
		profit[code] = revenue.Sub(expenses)
	}
	return engine.Output{Values: map[string]any{
		OutProfit:          profit,
		OutGrossMargin:     gross,
		OutOperatingProfit: operating,
	}}, nil
}

// retainedEarnings rolls opening retained earnings forward:
// closing = opening + profit - dividends + adjustments.
func retainedEarnings(ctx context.Context, s *engine.Scope, c any) (engine.Output, error) {
	cfg := c.(*RetainedEarningsConfig)
	ref := s.Ref()

	opening, err := s.Amounts(ctx, OutOpeningRE)
	if err != nil {
		return engine.Output{}, err
	}
	profit, err := s.Amounts(ctx, OutProfit)
	if err != nil {
		return engine.Output{}, err
	}

	category := orDefault(cfg.DividendCategory, model.CategoryDividend)
	codes := unionKeys(opening, profit)
	closing := make(engine.Amounts, len(codes))
	dividends := make(engine.Amounts, len(codes))
	adjustments := make(engine.Amounts, len(codes))
	for _, code := range codes {
		div, ok := cfg.Dividends[code]
		if !ok {
			// Dividend accounts may be debit balances in a credit-normal class.
			div = ref.SumByCategory(code, s.Period(), category).Abs()
		}
		adj := cfg.Adjustments[code]
		dividends[code] = div
		adjustments[code] = adj
		closing[code] = opening[code].Add(profit[code]).Sub(div).Add(adj)
	}
	return engine.Output{Values: map[string]any{
		OutClosingRE:   closing,
		OutDividends:   dividends,
		OutAdjustments: adjustments,
	}}, nil
}
