// Package elimination removes intercompany balances from consolidated
// totals.
//
// Transactions are grouped by unordered entity pair and intercompany class.
// Each group is matched against the enabled rules in (priority, id) order;
// the first match decides how it is eliminated.
package elimination

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/model"
)

// Problem codes.
const (
	CodeUnmatchedBalance = "UnmatchedIntercompanyBalance"
	CodeNoMatchingRule   = "NoMatchingRule"
	CodeMixedCurrency    = "MixedCurrencyGroup"
)

// Problem is a group that could not be fully eliminated.
type Problem struct {
	Code     string          `json:"code"`
	GroupKey string          `json:"group_key"`
	RuleID   string          `json:"rule_id,omitempty"`
	Required bool            `json:"required"`
	Residual decimal.Decimal `json:"residual"`
	Message  string          `json:"message"`
}

// Input is everything one elimination pass needs.
type Input struct {
	NodeID       string
	Period       string
	Transactions []model.IntercompanyTransaction
	Rules        []model.EliminationRule
	Tolerance    decimal.Decimal
	// Classes restricts elimination to these intercompany classes when set.
	Classes []string
}

// Result holds the posted entries and a summary of every group.
type Result struct {
	Entries  []model.JournalEntry
	Groups   []model.ICGroup
	Problems []Problem
}

// Fatal returns the first problem raised under a required rule.
func (r Result) Fatal() (Problem, bool) {
	for _, p := range r.Problems {
		if p.Required {
			return p, true
		}
	}
	return Problem{}, false
}

type group struct {
	summary model.ICGroup
	members []model.IntercompanyTransaction
}

// Eliminate groups in.Transactions for in.Period and applies in.Rules.
func Eliminate(in Input) Result {
	tol := in.Tolerance
	if tol.IsZero() {
		tol = model.Tolerance
	}
	rules := sortedRules(in.Rules)
	groups := groupTransactions(in)

	var res Result
	for _, g := range groups {
		rule, ok := match(rules, g.summary)
		if !ok {
			g.summary.Residual = g.summary.Debits.Sub(g.summary.Credits)
			res.Groups = append(res.Groups, g.summary)
			res.Problems = append(res.Problems, Problem{
				Code:     CodeNoMatchingRule,
				GroupKey: g.summary.Key,
				Residual: g.summary.Residual,
				Message:  fmt.Sprintf("no enabled elimination rule matches group %s", g.summary.Key),
			})
			continue
		}
		g.summary.RuleID = rule.ID
		g.summary.RuleType = rule.RuleType
		g.summary.Required = rule.Required

		if currencies := g.currencies(); len(currencies) > 1 {
			g.summary.Residual = g.summary.Debits.Sub(g.summary.Credits)
			res.Groups = append(res.Groups, g.summary)
			res.Problems = append(res.Problems, Problem{
				Code:     CodeMixedCurrency,
				GroupKey: g.summary.Key,
				RuleID:   rule.ID,
				Required: rule.Required,
				Residual: g.summary.Residual,
				Message: fmt.Sprintf("group %s mixes currencies %v and was not eliminated under rule %s",
					g.summary.Key, currencies, rule.ID),
			})
			continue
		}

		var entry model.JournalEntry
		switch rule.RuleType {
		case model.RuleSuspense:
			entry = suspenseEntry(in, g, rule)
			g.summary.Residual = decimal.Zero
		default:
			entry = fullEntry(in, g, rule)
			g.summary.Residual = g.summary.Debits.Sub(g.summary.Credits)
		}
		g.summary.Eliminated = true
		if len(entry.Lines) > 0 {
			res.Entries = append(res.Entries, entry)
		}
		res.Groups = append(res.Groups, g.summary)

		if g.summary.Residual.Abs().GreaterThan(tol) {
			res.Problems = append(res.Problems, Problem{
				Code:     CodeUnmatchedBalance,
				GroupKey: g.summary.Key,
				RuleID:   rule.ID,
				Required: rule.Required,
				Residual: g.summary.Residual,
				Message: fmt.Sprintf("group %s leaves %s uneliminated under rule %s",
					g.summary.Key, g.summary.Residual.StringFixed(2), rule.ID),
			})
		}
	}
	return res
}

func sortedRules(rules []model.EliminationRule) []model.EliminationRule {
	out := make([]model.EliminationRule, 0, len(rules))
	for _, r := range rules {
		if r.Enabled {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func groupTransactions(in Input) []*group {
	allowed := make(map[string]bool, len(in.Classes))
	for _, c := range in.Classes {
		allowed[c] = true
	}
	byKey := make(map[string]*group)
	for _, txn := range in.Transactions {
		if txn.Period != in.Period {
			continue
		}
		if len(allowed) > 0 && !allowed[txn.ICClass] {
			continue
		}
		key, a, b := model.GroupKey(txn.EntityCode, txn.CounterpartyCode, txn.ICClass)
		g, ok := byKey[key]
		if !ok {
			g = &group{summary: model.ICGroup{
				Key:     key,
				EntityA: a,
				EntityB: b,
				ICClass: txn.ICClass,
				Debits:  decimal.Zero,
				Credits: decimal.Zero,
			}}
			byKey[key] = g
		}
		g.members = append(g.members, txn)
		if txn.Amount.IsPositive() {
			g.summary.Debits = g.summary.Debits.Add(txn.Amount)
		} else {
			g.summary.Credits = g.summary.Credits.Add(txn.Amount.Neg())
		}
	}

	out := make([]*group, 0, len(byKey))
	for _, g := range byKey {
		sort.Slice(g.members, func(i, j int) bool { return g.members[i].ID < g.members[j].ID })
		for _, m := range g.members {
			g.summary.Members = append(g.summary.Members, m.ID)
		}
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].summary.Key < out[j].summary.Key })
	return out
}

// match returns the first rule whose pair and class scope cover g.
func match(rules []model.EliminationRule, g model.ICGroup) (model.EliminationRule, bool) {
	for _, r := range rules {
		if r.AccountClass != "" && r.AccountClass != g.ICClass {
			continue
		}
		if !pairMatches(r.EntityA, r.EntityB, g.EntityA, g.EntityB) {
			continue
		}
		return r, true
	}
	return model.EliminationRule{}, false
}

func pairMatches(ra, rb, ga, gb string) bool {
	fits := func(want, got string) bool { return want == "" || want == got }
	return (fits(ra, ga) && fits(rb, gb)) || (fits(ra, gb) && fits(rb, ga))
}

// currencies lists the distinct member currencies in sorted order.
func (g *group) currencies() []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range g.members {
		if !seen[m.Currency] {
			seen[m.Currency] = true
			out = append(out, m.Currency)
		}
	}
	sort.Strings(out)
	return out
}

// newEntry starts the group's entry. Members share one currency by the time
// it is called.
func newEntry(in Input, g *group, rule model.EliminationRule) model.JournalEntry {
	currency := ""
	if len(g.members) > 0 {
		currency = g.members[0].Currency
	}
	return model.JournalEntry{
		ID:       fmt.Sprintf("%s/elim/%s", in.NodeID, g.summary.Key),
		NodeID:   in.NodeID,
		RuleID:   rule.ID,
		Period:   in.Period,
		Currency: currency,
		Memo:     fmt.Sprintf("%s %s", rule.RuleType, g.summary.Key),
	}
}

// fullEntry reverses min(debits, credits) pro rata across each side. Each
// side is rounded to cents with the rounding difference on its last line,
// so the entry sums to exactly zero.
func fullEntry(in Input, g *group, rule model.EliminationRule) model.JournalEntry {
	entry := newEntry(in, g, rule)
	matched := decimal.Min(g.summary.Debits, g.summary.Credits)
	if matched.IsZero() {
		return entry
	}

	var debits, credits []model.IntercompanyTransaction
	for _, m := range g.members {
		if m.Amount.IsPositive() {
			debits = append(debits, m)
		} else if m.Amount.IsNegative() {
			credits = append(credits, m)
		}
	}
	reverseSide(&entry, debits, g.summary.Debits, matched.Neg())
	reverseSide(&entry, credits, g.summary.Credits, matched)
	return entry
}

// reverseSide allocates target across members in proportion to their size.
func reverseSide(entry *model.JournalEntry, members []model.IntercompanyTransaction, sideTotal, target decimal.Decimal) {
	allocated := decimal.Zero
	for i, m := range members {
		var share decimal.Decimal
		if i == len(members)-1 {
			share = target.Sub(allocated)
		} else {
			share = target.Mul(m.Amount.Abs()).Div(sideTotal).Round(2)
			allocated = allocated.Add(share)
		}
		entry.Lines = append(entry.Lines, model.JournalLine{
			EntityCode:  m.EntityCode,
			AccountCode: m.AccountCode,
			Amount:      share,
		})
	}
}

// suspenseEntry reverses every member in full and books the net to the
// rule's suspense account on the group's first entity.
func suspenseEntry(in Input, g *group, rule model.EliminationRule) model.JournalEntry {
	entry := newEntry(in, g, rule)
	net := decimal.Zero
	for _, m := range g.members {
		entry.Lines = append(entry.Lines, model.JournalLine{
			EntityCode:  m.EntityCode,
			AccountCode: m.AccountCode,
			Amount:      m.Amount.Neg(),
		})
		net = net.Add(m.Amount)
	}
	if !net.IsZero() {
		entry.Lines = append(entry.Lines, model.JournalLine{
			EntityCode:  g.summary.EntityA,
			AccountCode: rule.SuspenseAccount,
			Amount:      net,
		})
	}
	return entry
}
