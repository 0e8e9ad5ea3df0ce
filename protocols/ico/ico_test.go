package ico_test

import (
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taurusgroup/confidential-ico/internal/params"
	"github.com/taurusgroup/confidential-ico/internal/test"
	"github.com/taurusgroup/confidential-ico/pkg/confidential"
	"github.com/taurusgroup/confidential-ico/pkg/disclosure"
	"github.com/taurusgroup/confidential-ico/pkg/protocol"
	"github.com/taurusgroup/confidential-ico/protocols/ico"
	"github.com/taurusgroup/confidential-ico/protocols/token"
)

var (
	owner = test.Account("owner")
	alice = test.Account("alice")
	bob   = test.Account("bob")
	carol = test.Account("carol")
)

type fixture struct {
	env   *test.Env
	clock *test.Clock
	sale  *ico.Sale
}

func newSale(t *testing.T, hardCap uint64, opts ...func(*ico.Config)) *fixture {
	env := test.NewEnv(t)
	clock := test.NewClock()
	cfg := ico.DefaultConfig(owner, env.Engine, env.Verifier)
	cfg.HardCap = uint256.NewInt(hardCap)
	cfg.Clock = clock.Now
	for _, opt := range opts {
		opt(&cfg)
	}
	sale, err := ico.New(cfg)
	require.NoError(t, err)
	t.Cleanup(sale.Close)
	return &fixture{env: env, clock: clock, sale: sale}
}

func wei(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

// decrypt has the oracle answer for h, which must have been authorised.
func (f *fixture) decrypt(t *testing.T, h confidential.Handle) (clear, proof []byte) {
	return f.env.DecryptHandle(t, h)
}

func events(t *testing.T, ch <-chan protocol.Notification, n int) []protocol.Event {
	out := make([]protocol.Event, 0, n)
	for range n {
		select {
		case notification := <-ch:
			out = append(out, notification.Event)
		case <-time.After(5 * time.Second):
			t.Fatalf("got %d events, want %d", len(out), n)
		}
	}
	return out
}

func TestDefaults(t *testing.T) {
	env := test.NewEnv(t)
	cfg := ico.DefaultConfig(owner, env.Engine, env.Verifier)
	assert.Equal(t, wei(params.HardCapWei), cfg.HardCap)
	assert.Equal(t, 60*24*time.Hour, cfg.Duration)
	assert.EqualValues(t, 1_000_000_000_000, cfg.TokenSupply)

	sale, err := ico.New(cfg)
	require.NoError(t, err)
	defer sale.Close()
	info := sale.SaleInfo()
	assert.Equal(t, cfg.Duration, info.End.Sub(info.Start))
	assert.False(t, info.Finalized)
	assert.Equal(t, ico.StatusActive, sale.Status())
	assert.Equal(t, owner, sale.Owner())
	assert.False(t, sale.EncryptedTotal().IsZero())

	for name, broken := range map[string]func(*ico.Config){
		"owner":    func(c *ico.Config) { c.Owner = common.Address{} },
		"cap":      func(c *ico.Config) { c.HardCap = new(uint256.Int) },
		"wide cap": func(c *ico.Config) { c.HardCap = new(uint256.Int).Lsh(uint256.NewInt(1), 64) },
		"duration": func(c *ico.Config) { c.Duration = 0 },
		"supply":   func(c *ico.Config) { c.TokenSupply = 0 },
		"engine":   func(c *ico.Config) { c.Engine = nil },
		"verifier": func(c *ico.Config) { c.Verifier = nil },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := ico.DefaultConfig(owner, env.Engine, env.Verifier)
			broken(&cfg)
			_, err := ico.New(cfg)
			assert.Error(t, err)
		})
	}
}

func TestContributeValidation(t *testing.T) {
	f := newSale(t, 100)
	tests := []struct {
		name     string
		value    *uint256.Int
		declared uint64
		err      error
	}{
		{"nil payment", nil, 1, ico.ErrInsufficientPayment},
		{"zero payment", wei(0), 1, ico.ErrInsufficientPayment},
		{"zero amount", wei(10), 0, ico.ErrInvalidAmount},
		{"amount above payment", wei(10), 11, ico.ErrInvalidAmount},
		{"over cap", wei(101), 1, ico.ErrHardCapExceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.sale.Contribute(alice, tt.value, tt.declared)
			require.ErrorIs(t, err, tt.err)
			assert.Equal(t, protocol.KindAdmission, protocol.KindOf(err))
			assert.True(t, protocol.KindOf(err).Retryable())
		})
	}
	assert.Zero(t, f.sale.ContributorsCount())
	assert.True(t, f.sale.Raised().IsZero())
}

func TestContributionsAccumulate(t *testing.T) {
	f := newSale(t, 1000)
	require.NoError(t, f.sale.Contribute(alice, wei(10), 7))
	require.NoError(t, f.sale.Contribute(bob, wei(20), 20))
	require.NoError(t, f.sale.Contribute(alice, wei(5), 5))

	assert.Equal(t, 2, f.sale.ContributorsCount())
	first, ok := f.sale.Contributor(0)
	require.True(t, ok)
	assert.Equal(t, alice, first)
	second, _ := f.sale.Contributor(1)
	assert.Equal(t, bob, second)
	_, ok = f.sale.Contributor(2)
	assert.False(t, ok)

	record := f.sale.Contribution(alice)
	assert.True(t, record.HasContributed)
	assert.False(t, record.AmountDecryptable)
	assert.Zero(t, record.ClearAmount)
	assert.Equal(t, wei(15), record.Paid)
	assert.Equal(t, record.EncryptedAmount, f.sale.EncryptedContribution(alice))

	assert.False(t, f.sale.Contribution(carol).HasContributed)
	assert.True(t, f.sale.Contribution(carol).Paid.IsZero())
	assert.Equal(t, wei(35), f.sale.Raised())
	assert.Equal(t, wei(35), f.sale.Treasury())

	// the encrypted values hold the declared amounts, not the payments
	for h, want := range map[confidential.Handle]uint64{
		f.sale.EncryptedContribution(alice): 12,
		f.sale.EncryptedContribution(bob):   20,
		f.sale.EncryptedTotal():             32,
	} {
		_, err := f.env.Engine.RequestDecryption(h)
		require.NoError(t, err)
		clear, _ := f.decrypt(t, h)
		v, err := disclosure.DecodeUint64(clear)
		require.NoError(t, err)
		assert.Equal(t, want, v)
	}
}

func TestHardCapReached(t *testing.T) {
	f := newSale(t, 100)
	ch := make(chan protocol.Notification, 16)
	sub := f.sale.SubscribeEvents(ch)
	defer sub.Unsubscribe()

	require.NoError(t, f.sale.Contribute(alice, wei(60), 60))
	assert.Equal(t, []protocol.Event{
		ico.ContributionSubmitted{Contributor: alice, Value: wei(60)},
	}, events(t, ch, 1))

	require.NoError(t, f.sale.Contribute(bob, wei(40), 40))
	assert.Equal(t, []protocol.Event{
		ico.ContributionSubmitted{Contributor: bob, Value: wei(40)},
		ico.HardCapReached{Raised: wei(100)},
		ico.SaleClosed{End: f.clock.Now()},
	}, events(t, ch, 3))

	assert.ErrorIs(t, f.sale.Contribute(carol, wei(1), 1), ico.ErrSaleNotActive)
	assert.Equal(t, 2, f.sale.ContributorsCount())
	assert.True(t, f.sale.Finalized())
	assert.False(t, f.sale.SaleInfo().End.After(f.clock.Now()))
}

func TestHardCapBoundary(t *testing.T) {
	f := newSale(t, 100)
	require.NoError(t, f.sale.Contribute(alice, wei(60), 1))

	// one unit above the headroom is rejected entirely
	require.ErrorIs(t, f.sale.Contribute(bob, wei(41), 1), ico.ErrHardCapExceeded)
	assert.Equal(t, wei(60), f.sale.Raised())
	assert.False(t, f.sale.Contribution(bob).HasContributed)
	assert.False(t, f.sale.Finalized())

	require.NoError(t, f.sale.Contribute(bob, wei(40), 1))
	assert.True(t, f.sale.Finalized())
	assert.Equal(t, wei(100), f.sale.Raised())
}

func TestConcurrentContributions(t *testing.T) {
	f := newSale(t, 100)
	accounts := test.Accounts(30)

	var wg sync.WaitGroup
	errs := make([]error, len(accounts))
	for i, account := range accounts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = f.sale.Contribute(account, wei(7), 7)
		}()
	}
	wg.Wait()

	accepted := 0
	for _, err := range errs {
		if err == nil {
			accepted++
			continue
		}
		assert.ErrorIs(t, err, ico.ErrHardCapExceeded)
	}
	// 14·7 = 98 fits, a 15th payment would not
	assert.Equal(t, 14, accepted)
	assert.Equal(t, wei(98), f.sale.Raised())
	assert.Equal(t, accepted, f.sale.ContributorsCount())
	assert.False(t, f.sale.Finalized())
}

func TestWindow(t *testing.T) {
	f := newSale(t, 100, func(c *ico.Config) { c.Duration = time.Hour })

	f.clock.Advance(time.Hour)
	require.NoError(t, f.sale.Contribute(alice, wei(1), 1), "the end itself is still inside the window")
	assert.False(t, f.sale.Finalized())

	f.clock.Advance(time.Second)
	assert.ErrorIs(t, f.sale.Contribute(alice, wei(1), 1), ico.ErrSaleNotActive)
	assert.True(t, f.sale.Finalized())
	assert.Equal(t, ico.StatusFinalized, f.sale.Status())
}

func TestCloseSale(t *testing.T) {
	f := newSale(t, 100)
	assert.ErrorIs(t, f.sale.CloseSale(alice), ico.ErrOnlyOwner)

	require.NoError(t, f.sale.CloseSale(owner))
	info := f.sale.SaleInfo()
	assert.False(t, info.End.After(f.clock.Now()))
	assert.True(t, info.Finalized)
	assert.ErrorIs(t, f.sale.Contribute(alice, wei(1), 1), ico.ErrSaleNotActive)

	f.clock.Advance(time.Minute)
	require.NoError(t, f.sale.CloseSale(owner))
	assert.Equal(t, f.clock.Now(), f.sale.SaleInfo().End)
	assert.Zero(t, f.sale.ContributorsCount())
}

func TestMakeTotalDecryptable(t *testing.T) {
	f := newSale(t, 100)
	require.NoError(t, f.sale.Contribute(alice, wei(10), 10))

	assert.ErrorIs(t, f.sale.MakeTotalDecryptable(owner), ico.ErrSaleStillRunning)
	require.NoError(t, f.sale.CloseSale(owner))
	assert.ErrorIs(t, f.sale.MakeTotalDecryptable(alice), ico.ErrOnlyOwner)

	require.NoError(t, f.sale.MakeTotalDecryptable(owner))
	assert.True(t, f.sale.SaleInfo().TotalDecryptable)
	assert.True(t, f.env.Engine.Authorized(f.sale.EncryptedTotal()))
	assert.ErrorIs(t, f.sale.MakeTotalDecryptable(owner), disclosure.ErrAlreadySet)

	clear, proof := f.decrypt(t, f.sale.EncryptedTotal())
	assert.ErrorIs(t, f.sale.VerifyAndSetTotal(bob, disclosure.EncodeUint64(11), proof), disclosure.ErrInvalidProof)
	require.NoError(t, f.sale.VerifyAndSetTotal(bob, clear, proof))
	assert.EqualValues(t, 10, f.sale.SaleInfo().ClearTotal)

	err := f.sale.VerifyAndSetTotal(bob, clear, proof)
	assert.ErrorIs(t, err, disclosure.ErrAlreadyVerified)
	assert.Equal(t, protocol.KindIdempotence, protocol.KindOf(err))
	assert.EqualValues(t, 10, f.sale.SaleInfo().ClearTotal)
}

func TestEmptySaleTotal(t *testing.T) {
	f := newSale(t, 100)
	assert.ErrorIs(t, f.sale.VerifyAndSetTotal(owner, nil, nil), disclosure.ErrNotDecryptable)
	require.NoError(t, f.sale.CloseSale(owner))
	require.NoError(t, f.sale.MakeTotalDecryptable(owner))
	clear, proof := f.decrypt(t, f.sale.EncryptedTotal())
	require.NoError(t, f.sale.VerifyAndSetTotal(owner, clear, proof))
	assert.Zero(t, f.sale.SaleInfo().ClearTotal)
}

func TestContributionDisclosure(t *testing.T) {
	f := newSale(t, 100)
	require.NoError(t, f.sale.Contribute(alice, wei(30), 25))

	assert.ErrorIs(t, f.sale.MakeMyContributionDecryptable(bob), ico.ErrNotContributor)
	assert.ErrorIs(t, f.sale.MakeMyContributionDecryptable(alice), ico.ErrSaleStillRunning)
	assert.ErrorIs(t, f.sale.VerifyMyContribution(alice, nil, nil), disclosure.ErrNotDecryptable)

	require.NoError(t, f.sale.CloseSale(owner))
	require.NoError(t, f.sale.MakeMyContributionDecryptable(alice))
	after := f.sale.Contribution(alice)
	assert.True(t, after.AmountDecryptable)

	err := f.sale.MakeMyContributionDecryptable(alice)
	assert.ErrorIs(t, err, disclosure.ErrAlreadySet)
	assert.False(t, protocol.KindOf(err).Retryable())
	assert.Equal(t, after, f.sale.Contribution(alice))

	clear, proof := f.decrypt(t, f.sale.EncryptedContribution(alice))
	assert.ErrorIs(t, f.sale.VerifyMyContribution(bob, clear, proof), ico.ErrNotContributor)
	assert.ErrorIs(t, f.sale.VerifyMyContribution(alice, clear, []byte("forged")), disclosure.ErrInvalidProof)
	assert.Zero(t, f.sale.Contribution(alice).ClearAmount)

	require.NoError(t, f.sale.VerifyMyContribution(alice, clear, proof))
	assert.EqualValues(t, 25, f.sale.Contribution(alice).ClearAmount)
	assert.ErrorIs(t, f.sale.VerifyMyContribution(alice, clear, proof), disclosure.ErrAlreadyVerified)
	assert.EqualValues(t, 25, f.sale.Contribution(alice).ClearAmount)
}

type acceptAll struct{}

func (acceptAll) Verify(confidential.Handle, []byte, []byte) bool { return true }

func TestInconsistentClearValue(t *testing.T) {
	f := newSale(t, 100, func(c *ico.Config) { c.Verifier = acceptAll{} })
	require.NoError(t, f.sale.Contribute(alice, wei(30), 25))
	require.NoError(t, f.sale.CloseSale(owner))
	require.NoError(t, f.sale.MakeMyContributionDecryptable(alice))
	require.NoError(t, f.sale.MakeTotalDecryptable(owner))

	err := f.sale.VerifyMyContribution(alice, disclosure.EncodeUint64(31), nil)
	assert.ErrorIs(t, err, ico.ErrInconsistentClearValue)
	assert.ErrorIs(t, f.sale.VerifyAndSetTotal(alice, disclosure.EncodeUint64(31), nil), ico.ErrInconsistentClearValue)
	assert.ErrorIs(t, f.sale.VerifyAndSetTotal(alice, []byte{1}, nil), disclosure.ErrInvalidProof)

	// a rejected value leaves the subject waiting for a proof
	require.NoError(t, f.sale.VerifyMyContribution(alice, disclosure.EncodeUint64(30), nil))
	assert.EqualValues(t, 30, f.sale.Contribution(alice).ClearAmount)
}

func TestEntitlement(t *testing.T) {
	tests := []struct {
		amount, total, supply uint64
		want                  uint64
		err                   error
	}{
		{50, 100, 1_000, 500, nil},
		{1, 3, 10, 3, nil},
		{2, 3, 10, 6, nil},
		{3, 3, 10, 10, nil},
		{1, 1_000_000_000, 10, 0, nil},
		{1 << 62, 1 << 63, params.TokenSupply, params.TokenSupply / 2, nil},
		{^uint64(0), ^uint64(0), ^uint64(0), ^uint64(0), nil},
		{1, 0, 10, 0, ico.ErrTotalNotVerified},
		{4, 3, 10, 0, ico.ErrInconsistentClearValue},
	}
	for _, tt := range tests {
		got, err := ico.Entitlement(tt.amount, tt.total, tt.supply)
		if tt.err != nil {
			assert.ErrorIs(t, err, tt.err)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%d·%d/%d", tt.amount, tt.supply, tt.total)
	}
}

func TestClaimTokens(t *testing.T) {
	f := newSale(t, 100, func(c *ico.Config) { c.TokenSupply = 1_000 })
	tok, err := token.New(token.DefaultConfig(owner, f.env.Engine, f.env.Verifier))
	require.NoError(t, err)
	defer tok.Close()

	require.NoError(t, f.sale.Contribute(alice, wei(30), 30))
	require.NoError(t, f.sale.Contribute(bob, wei(20), 10))
	require.NoError(t, f.sale.Contribute(carol, wei(5), 5))

	_, err = f.sale.ClaimTokens(alice)
	assert.ErrorIs(t, err, ico.ErrSaleStillRunning)
	require.NoError(t, f.sale.CloseSale(owner))

	_, err = f.sale.ClaimTokens(alice)
	assert.ErrorIs(t, err, ico.ErrTokenNotLinked)
	assert.ErrorIs(t, f.sale.SetTokenContract(alice, tok), ico.ErrOnlyOwner)
	assert.ErrorIs(t, f.sale.SetTokenContract(owner, nil), ico.ErrZeroAddress)
	require.NoError(t, f.sale.SetTokenContract(owner, tok))
	assert.ErrorIs(t, f.sale.SetTokenContract(owner, tok), ico.ErrAlreadyLinked)
	assert.Equal(t, tok.Address(), f.sale.TokenContract())
	require.NoError(t, tok.SetICOContract(owner, f.sale.Address()))

	_, err = f.sale.ClaimTokens(test.Account("nobody"))
	assert.ErrorIs(t, err, ico.ErrNotContributor)
	_, err = f.sale.ClaimTokens(alice)
	assert.ErrorIs(t, err, ico.ErrNotVerified)

	for _, who := range []common.Address{alice, bob} {
		require.NoError(t, f.sale.MakeMyContributionDecryptable(who))
		clear, proof := f.decrypt(t, f.sale.EncryptedContribution(who))
		require.NoError(t, f.sale.VerifyMyContribution(who, clear, proof))
	}
	_, err = f.sale.ClaimTokens(alice)
	assert.ErrorIs(t, err, ico.ErrTotalNotVerified)

	require.NoError(t, f.sale.MakeTotalDecryptable(owner))
	clear, proof := f.decrypt(t, f.sale.EncryptedTotal())
	require.NoError(t, f.sale.VerifyAndSetTotal(owner, clear, proof))
	assert.EqualValues(t, 45, f.sale.SaleInfo().ClearTotal)

	// ⌊30·1000/45⌋ and ⌊10·1000/45⌋
	claimed, err := f.sale.ClaimTokens(alice)
	require.NoError(t, err)
	assert.EqualValues(t, 666, claimed)
	claimed, err = f.sale.ClaimTokens(bob)
	require.NoError(t, err)
	assert.EqualValues(t, 222, claimed)

	_, err = f.sale.ClaimTokens(alice)
	assert.ErrorIs(t, err, ico.ErrAlreadyClaimed)
	assert.True(t, f.sale.Contribution(alice).TokensClaimed)
	assert.False(t, f.sale.Contribution(carol).TokensClaimed)
	assert.EqualValues(t, 888, tok.TotalSupply())

	// the claimed tokens land in the confidential balance
	require.NoError(t, tok.MakeMyBalanceDecryptable(alice))
	clear, proof = f.decrypt(t, tok.BalanceOf(alice))
	require.NoError(t, tok.VerifyMyBalance(alice, clear, proof))
	assert.EqualValues(t, 666, tok.ClearBalance(alice))
}

func TestWithdrawFunds(t *testing.T) {
	f := newSale(t, 100)
	require.NoError(t, f.sale.Contribute(alice, wei(30), 1))
	require.NoError(t, f.sale.Contribute(bob, wei(12), 1))

	_, err := f.sale.WithdrawFunds(owner)
	assert.ErrorIs(t, err, ico.ErrSaleStillRunning)
	require.NoError(t, f.sale.CloseSale(owner))
	_, err = f.sale.WithdrawFunds(alice)
	assert.ErrorIs(t, err, ico.ErrOnlyOwner)

	withdrawn, err := f.sale.WithdrawFunds(owner)
	require.NoError(t, err)
	assert.Equal(t, wei(42), withdrawn)
	assert.True(t, f.sale.Treasury().IsZero())
	assert.Equal(t, wei(42), f.sale.Raised())

	_, err = f.sale.WithdrawFunds(owner)
	assert.ErrorIs(t, err, ico.ErrNothingToWithdraw)
}
