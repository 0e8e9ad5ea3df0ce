package confidential

import (
	"errors"
	"sync"

	"github.com/cronokirby/saferith"
	"github.com/ethereum/go-ethereum/event"
	"github.com/rs/zerolog"
	"github.com/taurusgroup/confidential-ico/pkg/paillier"
	"github.com/taurusgroup/confidential-ico/pkg/protocol"
)

var (
	ErrUnknownHandle = errors.New("confidential: unknown handle")
	ErrNoAsserter    = errors.New("confidential: no asserter installed")
	ErrClosed        = errors.New("confidential: engine closed")
	// ErrAssertion is the only information that escapes a failed non-negativity check.
	ErrAssertion = protocol.NewFault(protocol.KindArithmetic, "confidential: assertion failed")
)

// Asserter evaluates conditions on encrypted values without revealing them.
type Asserter interface {
	// NonNegative returns true if ct encrypts an integer in [0, 2⁶⁴).
	NonNegative(ct *paillier.Ciphertext) bool
}

// Engine stores confidential values, and exposes homomorphic arithmetic over their handles.
//
// Values are immutable: every operation stores a fresh ciphertext under a new handle.
type Engine struct {
	pk *paillier.PublicKey
	// zero is the trivial encryption of 0, with nonce 1
	zero *paillier.Ciphertext

	mtx        sync.RWMutex
	values     map[Handle]*paillier.Ciphertext
	authorized map[Handle]bool
	asserter   Asserter
	seq        uint64

	// queue holds tickets that have not been published yet, so that RequestDecryption never blocks.
	queueMtx  sync.Mutex
	queueCond *sync.Cond
	queue     []Ticket
	closed    bool
	done      chan struct{}

	tickets event.Feed
	scope   event.SubscriptionScope

	Log zerolog.Logger
}

// NewEngine returns an Engine encrypting under pk.
// Close must be called to release the goroutine publishing tickets.
func NewEngine(pk *paillier.PublicKey, log zerolog.Logger) *Engine {
	e := &Engine{
		pk:         pk,
		zero:       pk.EncWithNonce(new(saferith.Int).SetUint64(0), new(saferith.Nat).SetUint64(1)),
		values:     make(map[Handle]*paillier.Ciphertext),
		authorized: make(map[Handle]bool),
		done:       make(chan struct{}),
		Log:        log.With().Str("component", "engine").Logger(),
	}
	e.queueCond = sync.NewCond(&e.queueMtx)
	go e.publish()
	return e
}

// PublicKey returns the key under which all values are encrypted.
func (e *Engine) PublicKey() *paillier.PublicKey {
	return e.pk
}

// SetAsserter installs the party able to check conditions on encrypted values.
func (e *Engine) SetAsserter(a Asserter) {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	e.asserter = a
}

// Encrypt stores a fresh encryption of plain.
// plain is chosen by the caller, nothing about it should be trusted before it is decrypted.
func (e *Engine) Encrypt(plain uint64) Handle {
	ct, _ := e.pk.EncUint64(plain)
	return e.store(ct)
}

// Add returns a new handle for a + b. Zero handles are treated as encryptions of 0.
func (e *Engine) Add(a, b Handle) (Handle, error) {
	ctA, ctB, err := e.operands(a, b)
	if err != nil {
		return ZeroHandle, err
	}
	sum := ctA.Add(e.pk, ctB)
	sum.Randomize(e.pk, nil)
	return e.store(sum), nil
}

// Sub returns a new handle for a - b.
// The result must be non-negative, otherwise ErrAssertion is returned and nothing is stored.
func (e *Engine) Sub(a, b Handle) (Handle, error) {
	ctA, ctB, err := e.operands(a, b)
	if err != nil {
		return ZeroHandle, err
	}
	e.mtx.RLock()
	asserter := e.asserter
	e.mtx.RUnlock()
	if asserter == nil {
		return ZeroHandle, ErrNoAsserter
	}

	diff := ctA.Sub(e.pk, ctB)
	if !asserter.NonNegative(diff) {
		return ZeroHandle, ErrAssertion
	}
	diff.Randomize(e.pk, nil)
	return e.store(diff), nil
}

// RequestDecryption authorises the decryption of h, and publishes a Ticket for it.
// It returns immediately.
func (e *Engine) RequestDecryption(h Handle) (Ticket, error) {
	// queueMtx is held throughout, so that nothing is authorised once closed
	e.queueMtx.Lock()
	defer e.queueMtx.Unlock()
	if e.closed {
		return Ticket{}, ErrClosed
	}

	e.mtx.Lock()
	if _, ok := e.values[h]; !ok {
		e.mtx.Unlock()
		return Ticket{}, ErrUnknownHandle
	}
	e.authorized[h] = true
	e.seq++
	t := Ticket{Seq: e.seq, Handle: h}
	e.mtx.Unlock()

	e.queue = append(e.queue, t)
	e.queueCond.Signal()

	e.Log.Debug().Uint64("seq", t.Seq).Stringer("handle", h).Msg("decryption requested")
	return t, nil
}

// Authorized returns true once RequestDecryption has been called for h.
func (e *Engine) Authorized(h Handle) bool {
	e.mtx.RLock()
	defer e.mtx.RUnlock()
	return e.authorized[h]
}

// Ciphertext returns the ciphertext behind h. The result must not be modified.
func (e *Engine) Ciphertext(h Handle) (*paillier.Ciphertext, bool) {
	e.mtx.RLock()
	defer e.mtx.RUnlock()
	ct, ok := e.values[h]
	return ct, ok
}

// SubscribeTickets delivers every future Ticket to ch.
func (e *Engine) SubscribeTickets(ch chan<- Ticket) event.Subscription {
	return e.scope.Track(e.tickets.Subscribe(ch))
}

// Close stops publishing tickets and ends all subscriptions.
func (e *Engine) Close() {
	e.queueMtx.Lock()
	if e.closed {
		e.queueMtx.Unlock()
		return
	}
	e.closed = true
	e.queueCond.Broadcast()
	e.queueMtx.Unlock()

	e.scope.Close()
	<-e.done
}

func (e *Engine) publish() {
	defer close(e.done)
	for {
		e.queueMtx.Lock()
		for len(e.queue) == 0 && !e.closed {
			e.queueCond.Wait()
		}
		if e.closed {
			e.queueMtx.Unlock()
			return
		}
		t := e.queue[0]
		e.queue = e.queue[1:]
		e.queueMtx.Unlock()

		e.tickets.Send(t)
	}
}

func (e *Engine) operands(a, b Handle) (*paillier.Ciphertext, *paillier.Ciphertext, error) {
	ctA, err := e.lookup(a)
	if err != nil {
		return nil, nil, err
	}
	ctB, err := e.lookup(b)
	if err != nil {
		return nil, nil, err
	}
	return ctA, ctB, nil
}

func (e *Engine) lookup(h Handle) (*paillier.Ciphertext, error) {
	if h.IsZero() {
		return e.zero, nil
	}
	e.mtx.RLock()
	defer e.mtx.RUnlock()
	ct, ok := e.values[h]
	if !ok {
		return nil, ErrUnknownHandle
	}
	return ct, nil
}

func (e *Engine) store(ct *paillier.Ciphertext) Handle {
	h := handleOf(ct)
	e.mtx.Lock()
	defer e.mtx.Unlock()
	e.values[h] = ct
	return h
}
