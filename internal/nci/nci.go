// Package nci computes non-controlling interest shares of profit and
// equity for partly owned subsidiaries.
package nci

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/model"
)

// Method selects how NCI equity is measured.
type Method string

const (
	ProportionateShare Method = "proportionate_share"
	FairValue          Method = "fair_value"
)

// Timing selects which net assets the proportionate share is taken of.
type Timing string

const (
	Current       Timing = "current"
	AtAcquisition Timing = "at_acquisition"
)

// Acquisition holds the amounts fixed at the acquisition date.
type Acquisition struct {
	NetAssets decimal.Decimal `json:"net_assets"`
	FairValue decimal.Decimal `json:"fair_value"`
}

// Input is one subsidiary's figures for the period.
type Input struct {
	Entity      model.Entity
	Profit      decimal.Decimal
	OCI         decimal.Decimal
	Equity      decimal.Decimal // closing equity excluding current profit
	Method      Method
	Timing      Timing
	Acquisition Acquisition
}

// Result is the NCI allocation for one entity.
type Result struct {
	Entity       string          `json:"entity"`
	Share        decimal.Decimal `json:"share"`
	NCIProfit    decimal.Decimal `json:"nci_profit"`
	ParentProfit decimal.Decimal `json:"parent_profit"`
	NCIEquity    decimal.Decimal `json:"nci_equity"`
}

// Applies reports whether e carries a non-controlling interest: a fully
// consolidated subsidiary owned less than 100%.
func Applies(e model.Entity) bool {
	return e.Method == model.MethodFull &&
		e.ParentCode != "" &&
		e.OwnershipPercentage.LessThan(decimal.NewFromInt(100))
}

// Compute allocates profit and equity between parent and NCI. Entities
// without an NCI get a zero share and the whole profit as parent profit.
func Compute(in Input) Result {
	res := Result{
		Entity:       in.Entity.Code,
		Share:        decimal.Zero,
		NCIProfit:    decimal.Zero,
		ParentProfit: in.Profit,
		NCIEquity:    decimal.Zero,
	}
	if !Applies(in.Entity) {
		return res
	}
	share := in.Entity.NCIShare()
	res.Share = share
	res.NCIProfit = in.Profit.Mul(share).Round(2)
	res.ParentProfit = in.Profit.Sub(res.NCIProfit)

	switch in.Method {
	case FairValue:
		var movement decimal.Decimal
		if in.Timing == AtAcquisition {
			movement = in.Profit.Add(in.OCI)
		} else {
			movement = in.Equity.Sub(in.Acquisition.NetAssets).Add(in.Profit).Add(in.OCI)
		}
		res.NCIEquity = in.Acquisition.FairValue.Add(share.Mul(movement))
	default:
		if in.Timing == AtAcquisition {
			res.NCIEquity = share.Mul(in.Acquisition.NetAssets).Add(share.Mul(in.Profit.Add(in.OCI)))
		} else {
			res.NCIEquity = share.Mul(in.Equity.Add(in.Profit).Add(in.OCI))
		}
	}
	res.NCIEquity = res.NCIEquity.Round(2)
	return res
}

// Posting names the accounts the NCI allocation is booked to.
type Posting struct {
	NodeID        string
	Period        string
	Currency      string
	GroupEntity   string
	ShareAccount  string
	EquityAccount string
}

// Entry books res.NCIEquity on the group entity: Dr share account,
// Cr NCI equity. A zero allocation yields no entry.
func (p Posting) Entry(res Result) (model.JournalEntry, bool) {
	if res.NCIEquity.IsZero() {
		return model.JournalEntry{}, false
	}
	e := model.JournalEntry{
		ID:       fmt.Sprintf("%s/nci/%s", p.NodeID, res.Entity),
		NodeID:   p.NodeID,
		Period:   p.Period,
		Currency: p.Currency,
		Memo:     fmt.Sprintf("NCI allocation %s", res.Entity),
	}
	e.Debit(p.GroupEntity, p.ShareAccount, res.NCIEquity).
		Credit(p.GroupEntity, p.EquityAccount, res.NCIEquity)
	return e, true
}
