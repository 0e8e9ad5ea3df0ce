package confidential

import (
	"encoding/hex"
	"io"

	"github.com/taurusgroup/confidential-ico/internal/hash"
	"github.com/taurusgroup/confidential-ico/internal/params"
	"github.com/taurusgroup/confidential-ico/pkg/paillier"
)

// Handle is the public identifier of a confidential value.
// The zero Handle refers to an uninitialised value, which behaves as an encryption of 0.
type Handle [params.BytesHandle]byte

// ZeroHandle is the handle of every uninitialised value.
var ZeroHandle Handle

func handleOf(ct *paillier.Ciphertext) Handle {
	return Handle(hash.New(ct).Sum32())
}

// IsZero returns true if h has never been assigned.
func (h Handle) IsZero() bool {
	return h == ZeroHandle
}

func (h Handle) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

// Bytes returns a copy of h as a slice.
func (h Handle) Bytes() []byte {
	out := make([]byte, len(h))
	copy(out, h[:])
	return out
}

// WriteTo implements io.WriterTo and should be used within the hash.Hash function.
func (h Handle) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(h[:])
	return int64(n), err
}

// Domain implements hash.WriterToWithDomain, and separates this type within hash.Hash.
func (Handle) Domain() string {
	return "Confidential Handle"
}

// Ticket is a request for the decryption of an authorised handle.
type Ticket struct {
	// Seq is 1 for the first ticket issued by an Engine, and increases by one afterwards.
	Seq    uint64
	Handle Handle
}
