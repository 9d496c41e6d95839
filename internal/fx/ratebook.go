// Package fx translates entity balances from functional to reporting
// currency and computes the cumulative translation adjustment.
package fx

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/model"
)

// RateNotFoundError reports a required rate that the book cannot resolve.
type RateNotFoundError struct {
	Key model.FXKey
}

func (e *RateNotFoundError) Error() string {
	return fmt.Sprintf("no %s rate for %s/%s at %s", e.Key.RateType, e.Key.From, e.Key.To, e.Key.Date)
}

// IsRateNotFound returns true if err is a RateNotFoundError.
func IsRateNotFound(err error) bool {
	var rnf *RateNotFoundError
	return errors.As(err, &rnf)
}

// Reference is one lookup made against a RateBook.
type Reference struct {
	Key   model.FXKey
	Found bool
}

// RateBook is an indexed set of FX rates. Lookups fall back to the inverse
// pair and treat same-currency pairs as 1. Every lookup is recorded.
//
// Thread-safety: RateBook is safe for concurrent use.
type RateBook struct {
	rates map[model.FXKey]decimal.Decimal

	mu   sync.Mutex
	refs map[model.FXKey]bool
}

// NewRateBook indexes rates. A later duplicate key overwrites an earlier one;
// the store's unique constraint prevents duplicates in practice.
func NewRateBook(rates []model.FXRate) *RateBook {
	b := &RateBook{
		rates: make(map[model.FXKey]decimal.Decimal, len(rates)),
		refs:  make(map[model.FXKey]bool),
	}
	for _, r := range rates {
		b.rates[r.Key()] = r.Rate
	}
	return b
}

// Rate returns the rate converting one unit of from into to.
func (b *RateBook) Rate(from, to string, rt model.RateType, date string) (decimal.Decimal, error) {
	key := model.FXKey{From: from, To: to, RateType: rt, Date: date}
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	rate, ok := b.rates[key]
	if !ok {
		inv, invOK := b.rates[model.FXKey{From: to, To: from, RateType: rt, Date: date}]
		if invOK && !inv.IsZero() {
			rate, ok = decimal.NewFromInt(1).Div(inv), true
		}
	}
	b.mu.Lock()
	if !b.refs[key] {
		b.refs[key] = ok
	}
	b.mu.Unlock()
	if !ok {
		return decimal.Zero, &RateNotFoundError{Key: key}
	}
	return rate, nil
}

// References returns every key looked up so far, sorted.
func (b *RateBook) References() []Reference {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Reference, 0, len(b.refs))
	for k, found := range b.refs {
		out = append(out, Reference{Key: k, Found: found})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.String() < out[j].Key.String() })
	return out
}
