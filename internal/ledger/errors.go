package ledger

import (
	"errors"
	"fmt"
)

// ErrFileNotFound wraps a missing ledger file.
var ErrFileNotFound = errors.New("ledger file not found")

// ErrValidatorTimeout is returned when the external checker exceeds its
// deadline.
var ErrValidatorTimeout = errors.New("ledger validator timed out")

// ParseError describes a malformed line in a ledger file.
type ParseError struct {
	File string
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Msg)
}

// BalanceError reports a transaction whose postings do not sum to zero in
// some currency.
type BalanceError struct {
	File     string
	Line     int
	Currency string
	Residual string
}

func (e *BalanceError) Error() string {
	return fmt.Sprintf("%s:%d: transaction does not balance: %s %s residual", e.File, e.Line, e.Residual, e.Currency)
}

// DuplicateOpenError reports a second Open directive for an account.
type DuplicateOpenError struct {
	Account string
}

func (e *DuplicateOpenError) Error() string {
	return fmt.Sprintf("duplicate open directive for account %s", e.Account)
}
