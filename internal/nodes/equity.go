package nodes

import (
	"context"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/engine"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/model"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/nci"
)

// nciHandling splits each entity's profit and equity between parent and
// non-controlling interest and posts the NCI allocation to the group. All
// amounts are in the reporting currency: foreign entities are read from
// the upstream translation.
func nciHandling(ctx context.Context, s *engine.Scope, c any) (engine.Output, error) {
	cfg := c.(*NCIConfig)
	ref := s.Ref()

	profit, err := s.Amounts(ctx, OutProfit)
	if err != nil {
		return engine.Output{}, err
	}
	oci, err := s.OptionalAmounts(ctx, OutOCITotal)
	if err != nil {
		return engine.Output{}, err
	}
	tv, err := readTranslated(ctx, s)
	if err != nil {
		return engine.Output{}, err
	}

	codes := profit.Keys()
	if len(cfg.Entities) > 0 {
		if codes, err = entitiesOf(s, cfg.Entities); err != nil {
			return engine.Output{}, err
		}
	}

	nciProfit := make(engine.Amounts, len(codes))
	nciEquity := make(engine.Amounts, len(codes))
	parentProfit := make(engine.Amounts, len(codes))
	var entries []model.JournalEntry
	for _, code := range codes {
		ent, ok := ref.Entities[code]
		if !ok {
			parentProfit[code] = profit[code]
			continue
		}
		entProfit := profit[code]
		equity := ref.SumByClass(code, s.Period(), model.ClassEquity)
		if needsTranslation(ent) {
			tp, pok := tv.profit[code]
			te, eok := tv.sumClass(ref.Accounts, code, model.ClassEquity)
			if !pok || !eok {
				return engine.Output{}, untranslated(s, ent)
			}
			entProfit, equity = tp, te
		}
		res := nci.Compute(nci.Input{
			Entity:      ent,
			Profit:      entProfit,
			OCI:         oci[code],
			Equity:      equity,
			Method:      cfg.Method,
			Timing:      cfg.Timing,
			Acquisition: cfg.Acquisition[code],
		})
		nciProfit[code] = res.NCIProfit
		nciEquity[code] = res.NCIEquity
		parentProfit[code] = res.ParentProfit

		posting := nci.Posting{
			NodeID:        s.NodeID(),
			Period:        s.Period(),
			Currency:      ref.ReportingCurrency(),
			GroupEntity:   orDefault(ref.GroupCode(), ent.ParentCode),
			ShareAccount:  cfg.NCIShareAccount,
			EquityAccount: cfg.NCIEquityAccount,
		}
		if e, ok := posting.Entry(res); ok {
			entries = append(entries, e)
		}
	}
	return engine.Output{
		Values: map[string]any{
			OutNCIProfit:    nciProfit,
			OutNCIEquity:    nciEquity,
			OutParentProfit: parentProfit,
		},
		Entries: entries,
	}, nil
}

// equityStatement assembles each entity's equity: parent equity is share
// capital + closing retained earnings + OCI - NCI, total equity adds NCI back.
func equityStatement(ctx context.Context, s *engine.Scope, c any) (engine.Output, error) {
	cfg := c.(*EquityStatementConfig)
	ref := s.Ref()

	closingRE, err := s.Amounts(ctx, OutClosingRE)
	if err != nil {
		return engine.Output{}, err
	}
	oci, err := s.OptionalAmounts(ctx, OutOCITotal)
	if err != nil {
		return engine.Output{}, err
	}
	nciEquity, err := s.OptionalAmounts(ctx, OutNCIEquity)
	if err != nil {
		return engine.Output{}, err
	}

	codes := closingRE.Keys()
	if len(cfg.Entities) > 0 {
		if codes, err = entitiesOf(s, cfg.Entities); err != nil {
			return engine.Output{}, err
		}
	}
	category := orDefault(cfg.ShareCapitalCategory, model.CategoryShareCapital)

	statement := make([]EquityLine, 0, len(codes))
	total := make(engine.Amounts, len(codes))
	for _, code := range codes {
		line := EquityLine{
			Entity:           code,
			ShareCapital:     ref.SumByCategory(code, s.Period(), category),
			RetainedEarnings: closingRE[code],
			OCI:              oci[code],
			NCI:              nciEquity[code],
		}
		line.ParentEquity = line.ShareCapital.Add(line.RetainedEarnings).Add(line.OCI).Sub(line.NCI)
		line.TotalEquity = line.ParentEquity.Add(line.NCI)
		statement = append(statement, line)
		total[code] = line.TotalEquity
	}
	return engine.Output{Values: map[string]any{
		OutEquityStatement: statement,
		OutTotalEquity:     total,
	}}, nil
}
