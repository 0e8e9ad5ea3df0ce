package disclosure

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// clearValueArgs is the ABI layout of a disclosed value: a single uint64 word.
var clearValueArgs = func() abi.Arguments {
	typ, err := abi.NewType("uint64", "", nil)
	if err != nil {
		panic(err)
	}
	return abi.Arguments{{Name: "value", Type: typ}}
}()

// EncodeUint64 returns the ABI encoding of v, a 32 byte big endian word.
func EncodeUint64(v uint64) []byte {
	out, err := clearValueArgs.Pack(v)
	if err != nil {
		panic(fmt.Sprintf("disclosure: pack uint64: %v", err))
	}
	return out
}

// DecodeUint64 decodes a value encoded by EncodeUint64.
// Words with any of their upper 24 bytes set are rejected.
func DecodeUint64(clear []byte) (uint64, error) {
	if len(clear) != 32 {
		return 0, fmt.Errorf("disclosure: clear value has %d bytes, need 32", len(clear))
	}
	for _, b := range clear[:24] {
		if b != 0 {
			return 0, fmt.Errorf("disclosure: clear value exceeds 64 bits")
		}
	}
	values, err := clearValueArgs.Unpack(clear)
	if err != nil {
		return 0, fmt.Errorf("disclosure: %w", err)
	}
	v, ok := values[0].(uint64)
	if !ok {
		return 0, fmt.Errorf("disclosure: unexpected type %T", values[0])
	}
	return v, nil
}

// Uint64 is a decoder for Subject.Reveal, malformed payloads are reported as ErrInvalidProof.
func Uint64(clear []byte) (uint64, error) {
	v, err := DecodeUint64(clear)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}
	return v, nil
}
