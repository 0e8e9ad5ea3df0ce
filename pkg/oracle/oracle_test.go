package oracle_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/cronokirby/saferith"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taurusgroup/confidential-ico/internal/test"
	"github.com/taurusgroup/confidential-ico/pkg/confidential"
	"github.com/taurusgroup/confidential-ico/pkg/disclosure"
	"github.com/taurusgroup/confidential-ico/pkg/oracle"
	"github.com/taurusgroup/confidential-ico/pkg/paillier"
	"github.com/taurusgroup/confidential-ico/pkg/pool"
)

func TestDecryptAndVerify(t *testing.T) {
	env := test.NewEnv(t)
	h := env.Engine.Encrypt(1234)

	_, err := env.Oracle.Decrypt(context.Background(), confidential.Ticket{Handle: h})
	require.ErrorIs(t, err, oracle.ErrNotAuthorized)

	ticket, err := env.Engine.RequestDecryption(h)
	require.NoError(t, err)
	res, err := env.Oracle.Decrypt(context.Background(), ticket)
	require.NoError(t, err)
	assert.Equal(t, ticket, res.Ticket)
	assert.Equal(t, disclosure.EncodeUint64(1234), res.Clear)

	assert.True(t, env.Verifier.Verify(h, res.Clear, res.Proof))

	t.Run("wrong value", func(t *testing.T) {
		assert.False(t, env.Verifier.Verify(h, disclosure.EncodeUint64(1235), res.Proof))
	})
	t.Run("wrong handle", func(t *testing.T) {
		other := env.Engine.Encrypt(1234)
		assert.False(t, env.Verifier.Verify(other, res.Clear, res.Proof))
	})
	t.Run("unknown handle", func(t *testing.T) {
		var unknown confidential.Handle
		unknown[0] = 7
		assert.False(t, env.Verifier.Verify(unknown, res.Clear, res.Proof))
	})
	t.Run("garbage proof", func(t *testing.T) {
		assert.False(t, env.Verifier.Verify(h, res.Clear, nil))
		assert.False(t, env.Verifier.Verify(h, res.Clear, []byte{0xa0}))
	})
	t.Run("forged signature", func(t *testing.T) {
		p, err := oracle.DecodeProof(res.Proof)
		require.NoError(t, err)
		forger := test.AttestationKey("forger")
		forged := oracle.NewVerifier(env.Engine, env.Engine.PublicKey(), forger.PubKey())
		assert.False(t, forged.Verify(h, res.Clear, res.Proof), "signature from another key")

		p.Nonce = []byte{1}
		tampered, err := oracle.EncodeProof(p)
		require.NoError(t, err)
		assert.False(t, env.Verifier.Verify(h, res.Clear, tampered))
	})
}

func TestNonNegative(t *testing.T) {
	env := test.NewEnv(t)
	pk := env.Engine.PublicKey()

	small, _ := pk.EncUint64(5)
	big, _ := pk.EncUint64(7)
	assert.True(t, env.Oracle.NonNegative(small))
	assert.True(t, env.Oracle.NonNegative(big.Sub(pk, small)))
	assert.False(t, env.Oracle.NonNegative(small.Sub(pk, big)))
}

func TestDecryptBatch(t *testing.T) {
	keys := test.OracleKeys()
	engine := confidential.NewEngine(keys.Paillier.PublicKey, zerolog.Nop())
	defer engine.Close()
	pl := pool.NewPool(4)
	defer pl.TearDown()
	o, err := oracle.New(engine, keys, pl, zerolog.Nop())
	require.NoError(t, err)

	tickets := make([]confidential.Ticket, 8)
	for i := range tickets {
		tickets[i], err = engine.RequestDecryption(engine.Encrypt(uint64(i * 100)))
		require.NoError(t, err)
	}
	responses, err := o.DecryptBatch(context.Background(), tickets)
	require.NoError(t, err)
	for i, res := range responses {
		v, err := disclosure.DecodeUint64(res.Clear)
		require.NoError(t, err)
		assert.Equal(t, uint64(i*100), v)
		assert.True(t, o.Verifier().Verify(tickets[i].Handle, res.Clear, res.Proof))
	}

	_, err = o.DecryptBatch(context.Background(), []confidential.Ticket{{Handle: engine.Encrypt(1)}})
	assert.ErrorIs(t, err, oracle.ErrNotAuthorized)
}

func TestServe(t *testing.T) {
	env := test.NewEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tickets := make(chan confidential.Ticket, 8)
	sub := env.Engine.SubscribeTickets(tickets)
	defer sub.Unsubscribe()

	out := make(chan *oracle.Response, 8)
	served := make(chan error, 1)
	go func() { served <- env.Oracle.Serve(ctx, tickets, 2, out) }()

	want := map[confidential.Handle]uint64{}
	for _, v := range []uint64{3, 5, 8} {
		h := env.Engine.Encrypt(v)
		want[h] = v
		_, err := env.Engine.RequestDecryption(h)
		require.NoError(t, err)
	}

	for range want {
		select {
		case res := <-out:
			v, err := disclosure.DecodeUint64(res.Clear)
			require.NoError(t, err)
			assert.Equal(t, want[res.Ticket.Handle], v)
			assert.True(t, env.Verifier.Verify(res.Ticket.Handle, res.Clear, res.Proof))
		case <-time.After(10 * time.Second):
			t.Fatal("no response")
		}
	}

	cancel()
	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
	}
}

func TestKeyMismatch(t *testing.T) {
	env := test.NewEnv(t)
	small := paillier.NewSecretKeyFromPrimes(new(saferith.Nat).SetUint64(1019), new(saferith.Nat).SetUint64(1187))
	other := &oracle.Keys{Paillier: small, Attestation: test.AttestationKey("x")}
	_, err := oracle.New(env.Engine, other, nil, zerolog.Nop())
	require.ErrorIs(t, err, oracle.ErrKeyMismatch)
}

func TestKeystore(t *testing.T) {
	keys := test.OracleKeys()
	path := filepath.Join(t.TempDir(), "oracle.key")
	require.NoError(t, oracle.Save(path, keys, "correct horse", oracle.LightKeystoreConfig()))

	_, err := oracle.Load(path, "wrong")
	require.ErrorIs(t, err, oracle.ErrWrongPassphrase)

	loaded, err := oracle.Load(path, "correct horse")
	require.NoError(t, err)
	assert.True(t, loaded.Paillier.PublicKey.Equal(keys.Paillier.PublicKey))
	assert.Equal(t, keys.Attestation.Serialize(), loaded.Attestation.Serialize())
}
