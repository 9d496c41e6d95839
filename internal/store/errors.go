package store

import (
	"errors"
	"fmt"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/model"
)

// ErrNotFound is returned when a keyed read finds no row.
var ErrNotFound = errors.New("not found")

// ConflictError reports a ledger row whose version moved since the run
// read it.
type ConflictError struct {
	Key      model.BalanceKey
	Expected int64
	Actual   int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("ledger row %s/%s/%s: expected version %d, found %d",
		e.Key.EntityCode, e.Key.AccountCode, e.Key.Period, e.Expected, e.Actual)
}

// IsConflict reports whether err is a ledger version conflict.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
