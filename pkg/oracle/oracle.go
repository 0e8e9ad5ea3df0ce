package oracle

import (
	"context"
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/rs/zerolog"
	"github.com/taurusgroup/confidential-ico/internal/params"
	"github.com/taurusgroup/confidential-ico/pkg/confidential"
	"github.com/taurusgroup/confidential-ico/pkg/disclosure"
	"github.com/taurusgroup/confidential-ico/pkg/paillier"
	"github.com/taurusgroup/confidential-ico/pkg/pool"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNotAuthorized = errors.New("oracle: handle is not authorised for decryption")
	ErrKeyMismatch   = errors.New("oracle: engine does not encrypt under the oracle's key")
)

// Response is the output of a decryption, to be submitted to the ledger that requested it.
type Response struct {
	Ticket confidential.Ticket
	// Clear is the ABI encoded clear value
	Clear []byte
	// Proof is a cbor encoded Proof
	Proof []byte
}

// Oracle holds the decryption key of an Engine.
// It only ever decrypts handles the Engine has authorised, and proves every value it releases.
type Oracle struct {
	engine *confidential.Engine
	keys   *Keys
	pool   *pool.Pool

	Log zerolog.Logger
}

// New returns an Oracle for engine, and installs it as the engine's Asserter.
// pl may be nil, in which case batches are decrypted sequentially.
func New(engine *confidential.Engine, keys *Keys, pl *pool.Pool, log zerolog.Logger) (*Oracle, error) {
	if !keys.Paillier.PublicKey.Equal(engine.PublicKey()) {
		return nil, ErrKeyMismatch
	}
	o := &Oracle{
		engine: engine,
		keys:   keys,
		pool:   pl,
		Log:    log.With().Str("component", "oracle").Logger(),
	}
	engine.SetAsserter(o)
	return o, nil
}

// Verifier returns the public side of the oracle.
func (o *Oracle) Verifier() *Verifier {
	return NewVerifier(o.engine, o.keys.Paillier.PublicKey, o.keys.Attestation.PubKey())
}

// NonNegative implements confidential.Asserter.
func (o *Oracle) NonNegative(ct *paillier.Ciphertext) bool {
	m, err := o.keys.Paillier.Dec(ct)
	if err != nil {
		return false
	}
	return m.IsNegative() == 0 && m.Abs().TrueLen() <= params.BitsClearValue
}

// Decrypt decrypts the handle of t, if it was authorised.
func (o *Oracle) Decrypt(ctx context.Context, t confidential.Ticket) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !o.engine.Authorized(t.Handle) {
		return nil, ErrNotAuthorized
	}
	ct, ok := o.engine.Ciphertext(t.Handle)
	if !ok {
		return nil, confidential.ErrUnknownHandle
	}

	m, nonce, err := o.keys.Paillier.DecUint64(ct)
	if err != nil {
		return nil, fmt.Errorf("oracle: ticket %d: %w", t.Seq, err)
	}
	clear := disclosure.EncodeUint64(m)
	sig := ecdsa.Sign(o.keys.Attestation, Digest(t.Handle, clear))
	proof, err := EncodeProof(&Proof{
		Nonce:     nonce.Bytes(),
		Signature: sig.Serialize(),
	})
	if err != nil {
		return nil, fmt.Errorf("oracle: ticket %d: %w", t.Seq, err)
	}

	o.Log.Debug().Uint64("seq", t.Seq).Stringer("handle", t.Handle).Msg("decrypted")
	return &Response{Ticket: t, Clear: clear, Proof: proof}, nil
}

// DecryptBatch decrypts all tickets in parallel over the oracle's pool.
// Responses are in the same order as tickets; the first error encountered is returned.
func (o *Oracle) DecryptBatch(ctx context.Context, tickets []confidential.Ticket) ([]*Response, error) {
	type result struct {
		res *Response
		err error
	}
	results := pool.Parallelize(o.pool, len(tickets), func(i int) result {
		res, err := o.Decrypt(ctx, tickets[i])
		return result{res: res, err: err}
	})
	out := make([]*Response, len(tickets))
	for i, r := range results {
		if r.err != nil {
			return nil, r.err
		}
		out[i] = r.res
	}
	return out, nil
}

// Serve decrypts tickets as they arrive with workers goroutines, and delivers the responses on out.
// Tickets that cannot be decrypted are logged and skipped.
// It returns nil once ctx is cancelled or tickets is closed.
func (o *Oracle) Serve(ctx context.Context, tickets <-chan confidential.Ticket, workers int, out chan<- *Response) error {
	if workers <= 0 {
		workers = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for {
				var (
					t  confidential.Ticket
					ok bool
				)
				select {
				case <-ctx.Done():
					return ctx.Err()
				case t, ok = <-tickets:
					if !ok {
						return nil
					}
				}
				res, err := o.Decrypt(ctx, t)
				if err != nil {
					o.Log.Warn().Err(err).Uint64("seq", t.Seq).Msg("skipping ticket")
					continue
				}
				select {
				case out <- res:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
