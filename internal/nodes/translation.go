package nodes

import (
	"context"
	"errors"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/engine"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/fx"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/model"
)

// fxTranslation translates every foreign-currency entity. All entities are
// attempted so that every missing rate is reported for coverage; the node
// fails with the first missing key.
func fxTranslation(ctx context.Context, s *engine.Scope, c any) (engine.Output, error) {
	cfg := c.(*FXTranslationConfig)
	ref := s.Ref()

	rawRates, err := s.Input(ctx, model.InputFXRates)
	if err != nil {
		return engine.Output{}, err
	}
	rates, _ := rawRates.([]model.FXRate)
	book := fx.NewRateBook(rates)

	codes, err := entitiesOf(s, cfg.Entities)
	if err != nil {
		return engine.Output{}, err
	}

	translated := make(Balances)
	cta := make(engine.Amounts)
	profit := make(engine.Amounts)
	var reporting []model.JournalEntry
	var covered []string
	var missing *fx.RateNotFoundError

	for _, code := range codes {
		if err := ctx.Err(); err != nil {
			return engine.Output{}, err
		}
		ent := ref.Entities[code]
		if ent.Method == model.MethodEquity || ent.FunctionalCurrency == ent.ReportingCurrency {
			continue
		}
		res, err := fx.Translate(book, fx.Request{
			NodeID:        s.NodeID(),
			Entity:        ent,
			Period:        s.Period(),
			Balances:      ref.BalancesFor(code, s.Period()),
			Accounts:      ref.Accounts,
			Method:        fx.Method(cfg.Method),
			CTALocation:   cfg.CTALocation,
			CTAAccount:    cfg.CTAAccount,
			GainLossAcct:  cfg.FXGainLossAccount,
			OffsetAccount: cfg.TranslationOffsetAccount,
		})
		if err != nil {
			var rnf *fx.RateNotFoundError
			if errors.As(err, &rnf) {
				if missing == nil {
					missing = rnf
				}
				continue
			}
			return engine.Output{}, engine.NewNodeError(engine.ErrCodeExecutionFailed, s.NodeID(), "%v", err)
		}
		translated[code] = engine.Amounts(res.Translated)
		cta[code] = res.CTAToOCI
		profit[code] = res.Profit
		if len(res.Entry.Lines) > 0 {
			reporting = append(reporting, res.Entry)
		}
		covered = append(covered, code)
	}

	for _, r := range book.References() {
		s.RecordFX(r.Key, r.Found)
	}
	if missing != nil {
		return engine.Output{}, engine.NewFXRateNotFoundError(s.NodeID(), missing.Key)
	}
	for _, code := range covered {
		s.MarkTranslated(code)
	}
	return engine.Output{
		Values: map[string]any{
			OutTranslatedBalances: translated,
			OutCTA:                cta,
			OutTranslatedProfit:   profit,
		},
		Reporting: reporting,
	}, nil
}

// otherComprehensiveIncome totals OCI-class balances per entity. Foreign
// entities are totalled from the upstream translation, whose balances
// already carry any CTA booked to OCI.
func otherComprehensiveIncome(ctx context.Context, s *engine.Scope, c any) (engine.Output, error) {
	cfg := c.(*OCIConfig)
	ref := s.Ref()

	tv, err := readTranslated(ctx, s)
	if err != nil {
		return engine.Output{}, err
	}
	codes, err := entitiesOf(s, cfg.Entities)
	if err != nil {
		return engine.Output{}, err
	}
	total := make(engine.Amounts, len(codes))
	for _, code := range codes {
		ent := ref.Entities[code]
		if !needsTranslation(ent) {
			total[code] = ref.SumByClass(code, s.Period(), model.ClassOCI)
			continue
		}
		sum, ok := tv.sumClass(ref.Accounts, code, model.ClassOCI)
		if !ok {
			return engine.Output{}, untranslated(s, ent)
		}
		total[code] = sum
	}
	return engine.Output{Values: map[string]any{OutOCITotal: total}}, nil
}
