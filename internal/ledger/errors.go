package ledger

import (
	"errors"
	"fmt"
	"strings"
)

// Code classifies ledger failures
type Code string

const (
	CodeInvalidInput        Code = "INVALID_INPUT"
	CodeInvalidReference    Code = "INVALID_REFERENCE"
	CodeInvalidSelector     Code = "INVALID_SELECTOR"
	CodeTransactionFailure  Code = "TRANSACTION_FAILURE"
	CodeBlobUploadFailure   Code = "BLOB_UPLOAD_FAILURE"
	CodeBlobCleanupFailure  Code = "BLOB_CLEANUP_FAILURE"
	CodePartialBatchFailure Code = "PARTIAL_BATCH_FAILURE"
)

// LedgerError is a classified ledger failure. Two LedgerErrors match under
// errors.Is when their codes are equal.
type LedgerError struct {
	Code    Code
	Message string
	Err     error
}

var (
	ErrInvalidInput        = &LedgerError{Code: CodeInvalidInput, Message: "invalid input"}
	ErrInvalidReference    = &LedgerError{Code: CodeInvalidReference, Message: "referenced entity does not exist"}
	ErrInvalidSelector     = &LedgerError{Code: CodeInvalidSelector, Message: "selector must name exactly one of ids, report or all"}
	ErrTransactionFailure  = &LedgerError{Code: CodeTransactionFailure, Message: "ledger transaction failed"}
	ErrBlobUploadFailure   = &LedgerError{Code: CodeBlobUploadFailure, Message: "media upload failed"}
	ErrBlobCleanupFailure  = &LedgerError{Code: CodeBlobCleanupFailure, Message: "media cleanup failed"}
	ErrPartialBatchFailure = &LedgerError{Code: CodePartialBatchFailure, Message: "some reports could not be processed"}
)

// NewError builds a LedgerError with a formatted message
func NewError(code Code, err error, format string, args ...interface{}) *LedgerError {
	return &LedgerError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

func (e *LedgerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LedgerError) Unwrap() error {
	return e.Err
}

func (e *LedgerError) Is(target error) bool {
	t, ok := target.(*LedgerError)
	return ok && t.Code == e.Code
}

// CodeOf returns the code of the first LedgerError in err's chain, or "".
func CodeOf(err error) Code {
	var le *LedgerError
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}

// PartialBatchError reports a bulk deletion in which some reports failed.
// Reports holds the outcome of every affected report, failed or not.
type PartialBatchError struct {
	Reports []ReportDeletion
}

func (e *PartialBatchError) Error() string {
	var failed []string
	for _, r := range e.Reports {
		if r.Err != nil {
			failed = append(failed, fmt.Sprintf("%s (%v)", r.ReportID, r.Err))
		}
	}
	return fmt.Sprintf("%s: %d of %d reports failed: %s",
		CodePartialBatchFailure, len(failed), len(e.Reports), strings.Join(failed, ", "))
}

func (e *PartialBatchError) Is(target error) bool {
	t, ok := target.(*LedgerError)
	return ok && t.Code == CodePartialBatchFailure
}

// Failed returns the per-report outcomes that carry an error
func (e *PartialBatchError) Failed() []ReportDeletion {
	var out []ReportDeletion
	for _, r := range e.Reports {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}
