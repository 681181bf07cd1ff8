package types

import "errors"

// Kind classifies a failure the way spec §7 catalogs them, independent of
// the concrete error value so callers (JSON-RPC mapping, mempool rejection)
// can switch on category without string matching.
type Kind int

const (
	KindNone Kind = iota
	KindMalformed
	KindInvalidSignature
	KindWrongChainID
	KindInvalidNonce
	KindInsufficientBalance
	KindInvalidBlock
	KindNoContract
	KindNoMethod
	KindReentrancy
	KindNotPayable
	KindOnlyOwner
	KindContractExecution
	KindDuplicate
	KindIo
)

func (k Kind) String() string {
	switch k {
	case KindMalformed:
		return "Malformed"
	case KindInvalidSignature:
		return "InvalidSignature"
	case KindWrongChainID:
		return "WrongChainId"
	case KindInvalidNonce:
		return "InvalidNonce"
	case KindInsufficientBalance:
		return "InsufficientBalance"
	case KindInvalidBlock:
		return "InvalidBlock"
	case KindNoContract:
		return "NoContract"
	case KindNoMethod:
		return "NoMethod"
	case KindReentrancy:
		return "Reentrancy"
	case KindNotPayable:
		return "NotPayable"
	case KindOnlyOwner:
		return "OnlyOwner"
	case KindContractExecution:
		return "ContractExecution"
	case KindDuplicate:
		return "Duplicate"
	case KindIo:
		return "Io"
	default:
		return "None"
	}
}

// Error is a Kind-tagged error, the concrete type every public API in this
// module returns instead of opaque sentinel values.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Kind.String() + ": " + e.Msg }

// Is lets errors.Is(err, &Error{Kind: KindX}) match on Kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// NewError constructs a Kind-tagged error.
func NewError(k Kind, msg string) *Error { return &Error{Kind: k, Msg: msg} }

// KindOf extracts the Kind of err, or KindNone if err is not a *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindNone
}

// Sentinel Kind markers for use with errors.Is, e.g. errors.Is(err, ErrInvalidNonce).
var (
	ErrMalformed          = &Error{Kind: KindMalformed}
	ErrInvalidSignature   = &Error{Kind: KindInvalidSignature}
	ErrWrongChainID       = &Error{Kind: KindWrongChainID}
	ErrInvalidNonce       = &Error{Kind: KindInvalidNonce}
	ErrInsufficientBalance = &Error{Kind: KindInsufficientBalance}
	ErrInvalidBlock       = &Error{Kind: KindInvalidBlock}
	ErrNoContract         = &Error{Kind: KindNoContract}
	ErrNoMethod           = &Error{Kind: KindNoMethod}
	ErrReentrancy         = &Error{Kind: KindReentrancy}
	ErrNotPayable         = &Error{Kind: KindNotPayable}
	ErrOnlyOwner          = &Error{Kind: KindOnlyOwner}
	ErrContractExecution  = &Error{Kind: KindContractExecution}
	ErrDuplicate          = &Error{Kind: KindDuplicate}
	ErrIo                 = &Error{Kind: KindIo}
)
