package run

import (
	"errors"
	"fmt"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/model"
)

// ErrorCode categorizes run manager errors.
type ErrorCode string

const (
	// ErrCodeConcurrentRun indicates another run of the process holds the lock.
	ErrCodeConcurrentRun ErrorCode = "ConcurrentRunInProgress"

	// ErrCodeLedgerWriteConflict indicates a ledger row changed between the
	// run reading it and the commit writing it. The commit was rolled back
	// and can be retried.
	ErrCodeLedgerWriteConflict ErrorCode = "LedgerWriteConflict"

	// ErrCodeCommitBlocked indicates the run did not complete cleanly or a
	// validation check failed, so nothing was written.
	ErrCodeCommitBlocked ErrorCode = "CommitBlocked"

	// ErrCodeCurrencyMismatch indicates a delta is in a different currency
	// from the ledger row it would change, so nothing was written.
	ErrCodeCurrencyMismatch ErrorCode = "CurrencyMismatch"
)

// CommitError is returned when a run cannot start or its commit is refused.
type CommitError struct {
	Code      ErrorCode
	ProcessID string
	RunID     string
	Message   string
	Retryable bool
	Err       error
}

func (e *CommitError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CommitError) Unwrap() error {
	return e.Err
}

// Info returns the serialisable form of the error.
func (e *CommitError) Info() *model.ErrorInfo {
	info := &model.ErrorInfo{Code: string(e.Code), Message: e.Message}
	if e.Err != nil {
		info.Message += ": " + e.Err.Error()
	}
	return info
}

// CurrencyMismatchError reports a delta whose currency differs from its
// ledger row's.
type CurrencyMismatchError struct {
	Key    model.BalanceKey
	Ledger string
	Delta  string
	NodeID string
}

func (e *CurrencyMismatchError) Error() string {
	return fmt.Sprintf("%s/%s/%s is kept in %s but node %s posted %s",
		e.Key.EntityCode, e.Key.AccountCode, e.Key.Period, e.Ledger, e.NodeID, e.Delta)
}

// IsCurrencyMismatch returns true if err's chain holds a *CurrencyMismatchError.
func IsCurrencyMismatch(err error) bool {
	var cm *CurrencyMismatchError
	return errors.As(err, &cm)
}

// AsCommitError extracts a *CommitError from err's chain.
func AsCommitError(err error) (*CommitError, bool) {
	var ce *CommitError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// IsConcurrentRun returns true if err is a ConcurrentRunInProgress error.
func IsConcurrentRun(err error) bool {
	ce, ok := AsCommitError(err)
	return ok && ce.Code == ErrCodeConcurrentRun
}

// IsLedgerWriteConflict returns true if err is a LedgerWriteConflict error.
func IsLedgerWriteConflict(err error) bool {
	ce, ok := AsCommitError(err)
	return ok && ce.Code == ErrCodeLedgerWriteConflict
}

// IsCommitBlocked returns true if err is a CommitBlocked error.
func IsCommitBlocked(err error) bool {
	ce, ok := AsCommitError(err)
	return ok && ce.Code == ErrCodeCommitBlocked
}

// IsRetryable reports whether the failed operation may succeed if retried.
func IsRetryable(err error) bool {
	ce, ok := AsCommitError(err)
	return ok && ce.Retryable
}
