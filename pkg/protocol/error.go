package protocol

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Kind classifies a failed operation, and tells the caller whether retrying makes sense.
type Kind uint8

const (
	KindUnknown Kind = iota
	// KindAdmission covers zero values, closed windows and cap overflows.
	KindAdmission
	// KindAuthorization covers calls by the wrong identity, and subjects that are not yet eligible.
	KindAuthorization
	// KindProof is returned when a decryption proof does not check out.
	KindProof
	// KindIdempotence is returned when a write-once field is written twice.
	KindIdempotence
	// KindArithmetic is returned when the confidential engine aborts an operation.
	KindArithmetic
)

func (k Kind) String() string {
	switch k {
	case KindAdmission:
		return "admission"
	case KindAuthorization:
		return "authorization"
	case KindProof:
		return "proof"
	case KindIdempotence:
		return "idempotence"
	case KindArithmetic:
		return "arithmetic"
	default:
		return "unknown"
	}
}

// Retryable returns true when the same call may succeed later, or with corrected input.
func (k Kind) Retryable() bool {
	return k == KindAdmission || k == KindProof
}

// Fault is a sentinel error carrying a Kind.
// Faults are compared by identity, so they should be declared once as package level variables.
type Fault struct {
	kind Kind
	msg  string
}

// NewFault returns a new sentinel of the given kind.
func NewFault(kind Kind, msg string) *Fault {
	return &Fault{kind: kind, msg: msg}
}

func (f *Fault) Error() string {
	return f.msg
}

func (f *Fault) Kind() Kind {
	return f.kind
}

// KindOf returns the Kind of the first Fault found in err's chain.
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.kind
	}
	return KindUnknown
}

// Error is a custom error for contracts which contains information about the operation in which it occurred,
// and the identity which issued the call.
type Error struct {
	// Op is the name of the rejected operation
	Op string
	// Caller is the zero address if the operation was not issued by an account
	Caller common.Address
	// Err is the underlying error
	Err error
}

func (e Error) Error() string {
	if e.Caller == (common.Address{}) {
		return fmt.Sprintf("%s: %s", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: caller: %s: %s", e.Op, e.Caller.Hex(), e.Err)
}

func (e Error) Unwrap() error {
	return e.Err
}
