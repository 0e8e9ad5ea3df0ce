package test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/taurusgroup/confidential-ico/pkg/confidential"
	"github.com/taurusgroup/confidential-ico/pkg/oracle"
)

// Env is an Engine with its Oracle, torn down at the end of the test.
type Env struct {
	Engine   *confidential.Engine
	Oracle   *oracle.Oracle
	Verifier *oracle.Verifier
}

// NewEnv returns an Env using the fixed keys.
func NewEnv(t testing.TB) *Env {
	keys := OracleKeys()
	engine := confidential.NewEngine(keys.Paillier.PublicKey, zerolog.Nop())
	t.Cleanup(engine.Close)
	o, err := oracle.New(engine, keys, nil, zerolog.Nop())
	require.NoError(t, err)
	return &Env{
		Engine:   engine,
		Oracle:   o,
		Verifier: o.Verifier(),
	}
}

// Decrypt has the oracle decrypt t synchronously, and returns its clear value and proof.
func (e *Env) Decrypt(t testing.TB, ticket confidential.Ticket) (clear, proof []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	res, err := e.Oracle.Decrypt(ctx, ticket)
	require.NoError(t, err)
	return res.Clear, res.Proof
}

// DecryptHandle is Decrypt for an authorised handle.
func (e *Env) DecryptHandle(t testing.TB, h confidential.Handle) (clear, proof []byte) {
	return e.Decrypt(t, confidential.Ticket{Handle: h})
}
