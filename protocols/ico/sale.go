package ico

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/holiman/uint256"
	"github.com/taurusgroup/confidential-ico/pkg/disclosure"
	"github.com/taurusgroup/confidential-ico/pkg/protocol"
)

// Status of the admission window.
type Status uint8

const (
	StatusActive Status = iota
	// StatusFinalized means the window is over, whether it expired or was closed.
	StatusFinalized
)

func (s Status) String() string {
	if s == StatusActive {
		return "active"
	}
	return "finalized"
}

// Minter is the token sold by the sale.
type Minter interface {
	Address() common.Address
	Mint(caller, to common.Address, amount uint64) error
}

type contribution struct {
	amount disclosure.Subject[common.Address, uint64]
	// paid is the sum of the payments, an upper bound for amount
	paid    *uint256.Int
	claimed bool
}

// Sale is a fundraising ledger whose individual contributions stay encrypted.
//
// Contributions accumulate homomorphically per account and in an aggregate total.
// Payments are public, and their running sum enforces the hard cap.
// Once the window is over, the owner may have the total decrypted, and each contributor their own amount,
// after which contributors claim their share of the token supply.
type Sale struct {
	contract *protocol.Contract
	cfg      Config

	// token is set at most once
	token Minter

	start, end time.Time
	// closed latches once the owner closed the sale or the cap was reached
	closed bool

	// raised is the public running sum of payments, used for admission only
	raised *uint256.Int
	// treasury holds the payments that were not withdrawn
	treasury *uint256.Int

	total         disclosure.Subject[common.Address, uint64]
	contributions map[common.Address]*contribution
	contributors  []common.Address
}

// New deploys a Sale, whose window starts now.
func New(cfg Config) (*Sale, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.HardCap = cfg.HardCap.Clone()
	now := cfg.Clock()
	s := &Sale{
		contract:      protocol.NewContract("ico", cfg.Address, cfg.Log),
		cfg:           cfg,
		start:         now,
		end:           now.Add(cfg.Duration),
		raised:        new(uint256.Int),
		treasury:      new(uint256.Int),
		total:         disclosure.NewSubject[common.Address, uint64](cfg.Address),
		contributions: make(map[common.Address]*contribution),
	}
	s.total.Track(cfg.Engine.Encrypt(0))
	s.contract.Log.Info().
		Str("owner", cfg.Owner.Hex()).
		Str("cap", cfg.HardCap.Dec()).
		Time("end", s.end).
		Msg("deployed")
	return s, nil
}

func (s *Sale) Address() common.Address {
	return s.contract.Address()
}

// SubscribeEvents delivers every future notification of the sale to ch.
func (s *Sale) SubscribeEvents(ch chan<- protocol.Notification) event.Subscription {
	return s.contract.Subscribe(ch)
}

// Close ends all subscriptions.
func (s *Sale) Close() {
	s.contract.Close()
}

// SetTokenContract links the token minted by ClaimTokens. It can only be done once.
func (s *Sale) SetTokenContract(caller common.Address, token Minter) error {
	return s.contract.Exec("setTokenContract", caller, func(tx *protocol.Tx) error {
		if caller != s.cfg.Owner {
			return ErrOnlyOwner
		}
		if s.token != nil {
			return ErrAlreadyLinked
		}
		if token == nil || token.Address() == (common.Address{}) {
			return ErrZeroAddress
		}
		s.token = token
		tx.Emit(TokenContractSet{Token: token.Address()})
		return nil
	})
}

// CloseSale ends the admission window now. Calling it again moves the end to the new now.
func (s *Sale) CloseSale(caller common.Address) error {
	return s.contract.Exec("closeSale", caller, func(tx *protocol.Tx) error {
		if caller != s.cfg.Owner {
			return ErrOnlyOwner
		}
		s.closeAt(tx, s.cfg.Clock())
		return nil
	})
}

func (s *Sale) closeAt(tx *protocol.Tx, now time.Time) {
	s.end = now
	s.closed = true
	tx.Emit(SaleClosed{End: now})
	s.contract.Log.Info().Time("end", now).Str("raised", s.raised.Dec()).Msg("sale closed")
}

func (s *Sale) finalized(now time.Time) bool {
	return s.closed || now.After(s.end)
}

func (s *Sale) accepting(now time.Time) bool {
	return !s.finalized(now) && s.raised.Lt(s.cfg.HardCap)
}

func (s *Sale) record(contributor common.Address) (*contribution, error) {
	c, ok := s.contributions[contributor]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotContributor, contributor.Hex())
	}
	return c, nil
}
