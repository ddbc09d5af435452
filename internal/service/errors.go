package service

import (
	"errors"
)

// ErrorKind classifies a pipeline or report failure so callers can pick a retry policy.
type ErrorKind string

const (
	KindDuplicateRevenue   ErrorKind = "duplicate_revenue"
	KindStoreUnavailable   ErrorKind = "store_unavailable"
	KindAccountNotFound    ErrorKind = "account_not_found"
	KindLedgerWriteFailed  ErrorKind = "ledger_write_failed"
	KindRevenueWriteFailed ErrorKind = "revenue_write_failed"
	KindReportUnavailable  ErrorKind = "report_unavailable"
	KindInvalidPayment     ErrorKind = "invalid_payment"
)

// Messages surfaced to callers in structured results.
const (
	MsgDuplicateRevenue   = "Receita já processada para este pagamento"
	MsgStoreUnavailable   = "Erro ao verificar receita existente"
	MsgAccountNotFound    = "Conta contábil não encontrada"
	MsgLedgerWriteFailed  = "Erro ao criar lançamento contábil"
	MsgRevenueWriteFailed = "Erro ao criar registro de receita"
	MsgReportUnavailable  = "Erro ao gerar DRE"
)

var (
	ErrDuplicateRevenue   = errors.New("revenue already recorded for payment")
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrAccountNotFound    = errors.New("account not found")
	ErrLedgerWriteFailed  = errors.New("ledger write failed")
	ErrRevenueWriteFailed = errors.New("revenue write failed")
	ErrReportUnavailable  = errors.New("report unavailable")
	ErrInvalidPayment     = errors.New("invalid payment")
)

var kindSentinels = map[ErrorKind]error{
	KindDuplicateRevenue:   ErrDuplicateRevenue,
	KindStoreUnavailable:   ErrStoreUnavailable,
	KindAccountNotFound:    ErrAccountNotFound,
	KindLedgerWriteFailed:  ErrLedgerWriteFailed,
	KindRevenueWriteFailed: ErrRevenueWriteFailed,
	KindReportUnavailable:  ErrReportUnavailable,
	KindInvalidPayment:     ErrInvalidPayment,
}

// PipelineError is the typed failure returned by every pipeline component.
// errors.Is matches both the kind's sentinel and the underlying cause.
type PipelineError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *PipelineError) Error() string {
	if e.Err == nil {
		return string(e.Kind) + ": " + e.Message
	}
	return string(e.Kind) + ": " + e.Message + ": " + e.Err.Error()
}

func (e *PipelineError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if sentinel, ok := kindSentinels[e.Kind]; ok {
		errs = append(errs, sentinel)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func newPipelineError(kind ErrorKind, msg string, cause error) *PipelineError {
	return &PipelineError{Kind: kind, Message: msg, Err: cause}
}

// KindOf extracts the failure kind from err, or "" for untyped errors.
func KindOf(err error) ErrorKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// MessageOf returns the caller-facing message for err.
func MessageOf(err error) string {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Message
	}
	return err.Error()
}

// Retryable reports whether the provider may safely redeliver after err.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindStoreUnavailable, KindLedgerWriteFailed, KindRevenueWriteFailed:
		return true
	}
	return false
}
