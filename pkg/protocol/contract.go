package protocol

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/rs/zerolog"
)

// Event is a notification emitted by a contract operation.
type Event interface {
	EventName() string
}

// Notification is what subscribers of a Contract receive.
type Notification struct {
	// Contract is the address of the emitter
	Contract common.Address
	// Seq increases by one with every notification of the same contract
	Seq   uint64
	Event Event
}

// Tx is the context of an operation in progress.
type Tx struct {
	Caller common.Address
	events []Event
}

// Emit queues e, it is published once the operation has succeeded.
func (tx *Tx) Emit(e Event) {
	tx.events = append(tx.events, e)
}

// Contract gives a ledger a single serialization order.
// Every state changing operation runs to completion before the next one starts,
// and either all of its effects (including its events) are visible, or none.
type Contract struct {
	mtx     sync.RWMutex
	address common.Address
	seq     uint64

	feed  event.Feed
	scope event.SubscriptionScope

	Log zerolog.Logger
}

// NewContract returns a Contract deployed at address.
func NewContract(name string, address common.Address, log zerolog.Logger) *Contract {
	return &Contract{
		address: address,
		Log: log.With().
			Str("contract", name).
			Str("address", address.Hex()).
			Logger(),
	}
}

// Address of the contract.
func (c *Contract) Address() common.Address {
	return c.address
}

// Exec runs the operation op on behalf of caller.
// If f fails, the error is wrapped in an Error and the queued events are dropped.
// f must leave the state untouched when it returns an error.
//
// Notifications are sent while the contract is locked,
// subscribers must keep reading their channel.
func (c *Contract) Exec(op string, caller common.Address, f func(tx *Tx) error) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	tx := &Tx{Caller: caller}
	if err := f(tx); err != nil {
		kind := KindOf(err)
		log := c.Log.Debug()
		if kind == KindProof || kind == KindUnknown {
			log = c.Log.Warn()
		}
		log.Str("op", op).
			Str("caller", caller.Hex()).
			Stringer("kind", kind).
			Err(err).
			Msg("rejected")
		return Error{Op: op, Caller: caller, Err: err}
	}

	for _, e := range tx.events {
		c.seq++
		c.feed.Send(Notification{
			Contract: c.address,
			Seq:      c.seq,
			Event:    e,
		})
	}
	c.Log.Debug().Str("op", op).Str("caller", caller.Hex()).Int("events", len(tx.events)).Msg("done")
	return nil
}

// View runs f with shared access to the state.
func (c *Contract) View(f func()) {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	f()
}

// Subscribe delivers every future notification of this contract to ch.
func (c *Contract) Subscribe(ch chan<- Notification) event.Subscription {
	return c.scope.Track(c.feed.Subscribe(ch))
}

// Close ends all subscriptions.
func (c *Contract) Close() {
	c.scope.Close()
}
