package disclosure

import (
	"github.com/taurusgroup/confidential-ico/pkg/confidential"
	"github.com/taurusgroup/confidential-ico/pkg/protocol"
)

var (
	ErrAlreadySet        = protocol.NewFault(protocol.KindIdempotence, "Already set")
	ErrAlreadyVerified   = protocol.NewFault(protocol.KindIdempotence, "Already verified")
	ErrNotDecryptable    = protocol.NewFault(protocol.KindAuthorization, "Not decryptable")
	ErrNotRevealed       = protocol.NewFault(protocol.KindAuthorization, "Not revealed")
	ErrNothingToDisclose = protocol.NewFault(protocol.KindAdmission, "Nothing to disclose")
	ErrInvalidProof      = protocol.NewFault(protocol.KindProof, "Invalid proof")
)

// Stage is the disclosure state of a confidential field.
type Stage uint8

const (
	// Hidden is the initial stage, nobody may decrypt the field.
	Hidden Stage = iota
	// AwaitingProof means a decryption was authorised, and a proof for the authorised handle is expected.
	AwaitingProof
	// Revealed means the clear value was verified and stored.
	Revealed
)

func (s Stage) String() string {
	switch s {
	case Hidden:
		return "hidden"
	case AwaitingProof:
		return "awaiting proof"
	case Revealed:
		return "revealed"
	default:
		return "unknown"
	}
}

// Verifier checks that clear is the decryption of the value behind h.
type Verifier interface {
	Verify(h confidential.Handle, clear, proof []byte) bool
}

// Subject is a confidential field owned by K, whose clear value of type V
// can only be stored through a verified decryption proof.
//
// The zero value is a Hidden subject with an uninitialised handle.
type Subject[K comparable, V any] struct {
	key   K
	stage Stage
	// current is the latest handle of the field
	current confidential.Handle
	// authorized is the handle snapshot taken by Authorize, proofs are checked against it
	authorized confidential.Handle
	value      V
}

// NewSubject returns a Hidden subject belonging to key.
func NewSubject[K comparable, V any](key K) Subject[K, V] {
	return Subject[K, V]{key: key}
}

// Track records the latest handle of the field.
// An authorised snapshot, or a revealed value, is not affected.
func (s *Subject[K, V]) Track(h confidential.Handle) {
	s.current = h
}

// Authorize moves the subject to AwaitingProof, and returns the handle that may now be decrypted.
func (s *Subject[K, V]) Authorize() (confidential.Handle, error) {
	if s.stage != Hidden {
		return confidential.ZeroHandle, ErrAlreadySet
	}
	if s.current.IsZero() {
		return confidential.ZeroHandle, ErrNothingToDisclose
	}
	s.authorized = s.current
	s.stage = AwaitingProof
	return s.authorized, nil
}

// Reveal checks proof against the authorised handle, decodes clear with decode, and stores the result.
// Errors returned by decode are returned as is, and leave the subject untouched.
func (s *Subject[K, V]) Reveal(v Verifier, clear, proof []byte, decode func([]byte) (V, error)) (V, error) {
	var zero V
	switch s.stage {
	case Hidden:
		return zero, ErrNotDecryptable
	case Revealed:
		return zero, ErrAlreadyVerified
	}
	if !v.Verify(s.authorized, clear, proof) {
		return zero, ErrInvalidProof
	}
	value, err := decode(clear)
	if err != nil {
		return zero, err
	}
	s.value = value
	s.stage = Revealed
	return value, nil
}

// Reset forgets a revealed value, so that a fresh decryption may be authorised.
// A pending authorisation cannot be cancelled.
func (s *Subject[K, V]) Reset() error {
	if s.stage != Revealed {
		return ErrNotRevealed
	}
	var zero V
	s.value = zero
	s.authorized = confidential.ZeroHandle
	s.stage = Hidden
	return nil
}

func (s *Subject[K, V]) Key() K {
	return s.key
}

func (s *Subject[K, V]) Stage() Stage {
	return s.stage
}

// Decryptable returns true once Authorize has succeeded.
func (s *Subject[K, V]) Decryptable() bool {
	return s.stage != Hidden
}

func (s *Subject[K, V]) Revealed() bool {
	return s.stage == Revealed
}

// Value returns the revealed value, or the zero V.
func (s *Subject[K, V]) Value() V {
	return s.value
}

// Handle returns the latest handle of the field.
func (s *Subject[K, V]) Handle() confidential.Handle {
	return s.current
}

// Authorized returns the handle snapshot taken by Authorize.
func (s *Subject[K, V]) Authorized() confidential.Handle {
	return s.authorized
}
