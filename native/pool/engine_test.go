package pool

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"safepool/core/events"
	"safepool/crypto"
	"safepool/native/assets"
	"safepool/storage"
)

var (
	poolAddr   = [20]byte{0xff}
	ownerAddr  = [20]byte{0x01}
	manager    = [20]byte{0x02}
	walletAddr = [20]byte{0x03}
	holder     = [20]byte{0x04}
	tokenAsset = assets.AssetID{0x20, 0x01}
)

type poolEnv struct {
	engine   *Engine
	token    *assets.MemFungible
	recorder *events.Recorder
	height   uint64
	now      int64
}

func newPoolEnv(t *testing.T) *poolEnv {
	t.Helper()
	env := &poolEnv{
		token:    assets.NewMemFungible(),
		recorder: &events.Recorder{},
		height:   100,
		now:      1_000,
	}
	domain := crypto.TypedDomain{Name: "safepool", Version: "1", ChainID: 1}
	env.engine = NewEngine(env.token, poolAddr, domain)
	env.engine.SetState(NewStore(storage.NewMemDB()))
	env.engine.SetEmitter(env.recorder)
	env.engine.SetNowFunc(func() int64 { return env.now })
	env.engine.SetHeightFunc(func() uint64 { return env.height })
	env.engine.SetEntropy(func(b []byte) error {
		for i := range b {
			b[i] = 0xab
		}
		return nil
	})
	require.NoError(t, env.engine.InitEntities(ownerAddr, tokenAsset))
	return env
}

func (env *poolEnv) deposit(t *testing.T, addr [20]byte, value int64) {
	t.Helper()
	env.token.Mint(addr, big.NewInt(value))
	require.NoError(t, env.token.Approve(addr, poolAddr, big.NewInt(value)))
	require.NoError(t, env.engine.DepositTokens(addr, big.NewInt(value)))
}

// seedSurplus mints tokens straight to the pool and resyncs so the admin has
// distributable capacity.
func (env *poolEnv) seedSurplus(t *testing.T, value int64) {
	t.Helper()
	env.token.Mint(poolAddr, big.NewInt(value))
	supply, err := env.engine.Supply()
	require.NoError(t, err)
	newTotal := new(big.Int).Add(supply.Total, big.NewInt(value))
	require.NoError(t, env.engine.ResyncTotalSupply(ownerAddr, newTotal))
}

func TestInitEntitiesOnce(t *testing.T) {
	env := newPoolEnv(t)
	require.Error(t, env.engine.InitEntities(manager, tokenAsset))

	entities, err := env.engine.Entities()
	require.NoError(t, err)
	require.Equal(t, ownerAddr, entities.Owner)
	require.Equal(t, tokenAsset, entities.Token)
}

func TestDepositTokens(t *testing.T) {
	env := newPoolEnv(t)
	env.deposit(t, holder, 1_000)

	view, err := env.engine.Account(holder)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(1_000), view.Account.Balance)
	require.False(t, view.Account.Nonce.IsZero())

	supply, err := env.engine.Supply()
	require.NoError(t, err)
	require.Equal(t, big.NewInt(1_000), supply.Total)
	require.Equal(t, big.NewInt(1_000), supply.Minimum)
	require.Equal(t, 0, supply.Available.Cmp(big.NewInt(0)))
	require.Contains(t, env.recorder.Types(), EventTypeDeposited)
}

func TestDepositRequiresApprovalAndPositiveValue(t *testing.T) {
	env := newPoolEnv(t)
	env.token.Mint(holder, big.NewInt(100))

	require.Error(t, env.engine.DepositTokens(holder, big.NewInt(100)))
	require.ErrorIs(t, env.engine.DepositTokens(holder, big.NewInt(0)), ErrAmountNotPositive)
	require.ErrorIs(t, env.engine.DepositTokens(holder, big.NewInt(-5)), ErrAmountNotPositive)
}

func TestResyncBounds(t *testing.T) {
	env := newPoolEnv(t)
	env.deposit(t, holder, 500)
	env.token.Mint(poolAddr, big.NewInt(200))

	// Below minimum.
	require.ErrorIs(t, env.engine.ResyncTotalSupply(ownerAddr, big.NewInt(400)), ErrResyncBounds)
	// Above owned.
	require.ErrorIs(t, env.engine.ResyncTotalSupply(ownerAddr, big.NewInt(701)), ErrResyncBounds)
	require.NoError(t, env.engine.ResyncTotalSupply(ownerAddr, big.NewInt(700)))

	avail, err := env.engine.AvailableSupply()
	require.NoError(t, err)
	require.Equal(t, big.NewInt(200), avail)
}

func TestIssueAndAccept(t *testing.T) {
	env := newPoolEnv(t)
	env.seedSurplus(t, 1_000)
	secret := []byte("issuance secret")
	hash := crypto.Keccak256Word(secret)

	require.NoError(t, env.engine.IssueTokens(ownerAddr, holder, big.NewInt(400), hash))
	supply, err := env.engine.Supply()
	require.NoError(t, err)
	require.Equal(t, big.NewInt(400), supply.Pending)
	require.Equal(t, big.NewInt(600), supply.Available)

	require.ErrorIs(t, env.engine.AcceptTokens(holder, big.NewInt(400), []byte("nope")), ErrSecretMismatch)
	require.ErrorIs(t, env.engine.AcceptTokens(holder, big.NewInt(399), secret), ErrValueMismatch)

	require.NoError(t, env.engine.AcceptTokens(holder, big.NewInt(400), secret))
	view, err := env.engine.Account(holder)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(400), view.Account.Balance)
	require.Equal(t, big.NewInt(0), view.Account.Pending)

	supply, err = env.engine.Supply()
	require.NoError(t, err)
	require.Equal(t, big.NewInt(0), supply.Pending)
	require.Equal(t, big.NewInt(400), supply.Minimum)

	// The grant is single use.
	require.ErrorIs(t, env.engine.AcceptTokens(holder, big.NewInt(400), secret), ErrNoIssueRecord)
}

func TestIssueOverwriteAndClear(t *testing.T) {
	env := newPoolEnv(t)
	env.seedSurplus(t, 1_000)
	hash := crypto.Keccak256Word([]byte("s"))

	require.NoError(t, env.engine.IssueTokens(ownerAddr, holder, big.NewInt(400), hash))
	require.NoError(t, env.engine.IssueTokens(ownerAddr, holder, big.NewInt(250), hash))

	supply, err := env.engine.Supply()
	require.NoError(t, err)
	require.Equal(t, big.NewInt(250), supply.Pending)

	require.NoError(t, env.engine.IssueTokens(ownerAddr, holder, big.NewInt(0), [32]byte{}))
	supply, err = env.engine.Supply()
	require.NoError(t, err)
	require.Equal(t, big.NewInt(0), supply.Pending)
	require.ErrorIs(t, env.engine.AcceptTokens(holder, big.NewInt(0), []byte("s")), ErrNoIssueRecord)
}

func TestIssueLimits(t *testing.T) {
	env := newPoolEnv(t)
	env.seedSurplus(t, 20_000)
	hash := crypto.Keccak256Word([]byte("s"))

	require.ErrorIs(t, env.engine.IssueTokens(ownerAddr, holder, big.NewInt(10_001), hash), ErrIssueTooLarge)
	require.NoError(t, env.engine.SetMaxTokensPerIssue(ownerAddr, big.NewInt(15_000)))
	require.NoError(t, env.engine.IssueTokens(ownerAddr, holder, big.NewInt(10_001), hash))
}

func TestIssueBoundedByCapacity(t *testing.T) {
	env := newPoolEnv(t)
	env.seedSurplus(t, 300)
	hash := crypto.Keccak256Word([]byte("s"))

	require.ErrorIs(t, env.engine.IssueTokens(ownerAddr, holder, big.NewInt(301), hash), ErrExceedsAvailable)
	require.NoError(t, env.engine.IssueTokens(ownerAddr, holder, big.NewInt(300), hash))
}

func TestIssueRequiresAdmin(t *testing.T) {
	env := newPoolEnv(t)
	env.seedSurplus(t, 100)
	hash := crypto.Keccak256Word([]byte("s"))

	require.ErrorIs(t, env.engine.IssueTokens(holder, holder, big.NewInt(10), hash), ErrNotAdmin)

	require.NoError(t, env.engine.SetManager(ownerAddr, manager))
	require.NoError(t, env.engine.IssueTokens(manager, holder, big.NewInt(10), hash))
}

func TestExecuteAcceptTokensWithSignature(t *testing.T) {
	env := newPoolEnv(t)
	env.seedSurplus(t, 1_000)

	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	recipient := key.PubKey().Address().Raw()

	secret := []byte("signed accept")
	hash := crypto.Keccak256Word(secret)
	require.NoError(t, env.engine.IssueTokens(ownerAddr, recipient, big.NewInt(150), hash))

	digest := AcceptTokensTypedDigest(env.engine.Domain(), recipient, big.NewInt(150), hash)
	sig, err := crypto.Sign(digest, key)
	require.NoError(t, err)

	// Only admins may execute on the recipient's behalf.
	err = env.engine.ExecuteAcceptTokens(holder, recipient, big.NewInt(150), secret, crypto.SignatureModeTypedData, sig)
	require.ErrorIs(t, err, ErrNotAdmin)

	require.NoError(t, env.engine.ExecuteAcceptTokens(ownerAddr, recipient, big.NewInt(150), secret, crypto.SignatureModeTypedData, sig))
	view, err := env.engine.Account(recipient)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(150), view.Account.Balance)
}

func TestExecuteAcceptTokensRejectsForeignSignature(t *testing.T) {
	env := newPoolEnv(t)
	env.seedSurplus(t, 1_000)

	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	otherKey, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	recipient := key.PubKey().Address().Raw()

	secret := []byte("signed accept")
	hash := crypto.Keccak256Word(secret)
	require.NoError(t, env.engine.IssueTokens(ownerAddr, recipient, big.NewInt(150), hash))

	digest := AcceptTokensTypedDigest(env.engine.Domain(), recipient, big.NewInt(150), hash)
	sig, err := crypto.Sign(digest, otherKey)
	require.NoError(t, err)

	err = env.engine.ExecuteAcceptTokens(ownerAddr, recipient, big.NewInt(150), secret, crypto.SignatureModeTypedData, sig)
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func signPayment(t *testing.T, env *poolEnv, key *crypto.PrivateKey, from [20]byte, value *big.Int) []byte {
	t.Helper()
	msg, err := env.engine.GeneratePaymentMessage(from, value)
	require.NoError(t, err)
	digest, err := crypto.Digest(crypto.SignatureModePersonal, msg)
	require.NoError(t, err)
	sig, err := crypto.Sign(digest, key)
	require.NoError(t, err)
	return sig
}

func TestExecutePayment(t *testing.T) {
	env := newPoolEnv(t)
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	payer := key.PubKey().Address().Raw()
	env.deposit(t, payer, 1_000)

	sig := signPayment(t, env, key, payer, big.NewInt(300))
	require.NoError(t, env.engine.ExecutePayment(ownerAddr, payer, big.NewInt(300), crypto.SignatureModePersonal, sig))

	view, err := env.engine.Account(payer)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(700), view.Account.Balance)

	// The settled value becomes admin-transferable surplus.
	avail, err := env.engine.AvailableSupply()
	require.NoError(t, err)
	require.Equal(t, big.NewInt(300), avail)

	// The nonce advanced, so the same signature cannot replay.
	err = env.engine.ExecutePayment(ownerAddr, payer, big.NewInt(300), crypto.SignatureModePersonal, sig)
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestExecutePaymentTypedData(t *testing.T) {
	env := newPoolEnv(t)
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	payer := key.PubKey().Address().Raw()
	env.deposit(t, payer, 1_000)

	view, err := env.engine.Account(payer)
	require.NoError(t, err)
	digest := PaymentTypedDigest(env.engine.Domain(), payer, big.NewInt(120), view.Account.Nonce)
	sig, err := crypto.Sign(digest, key)
	require.NoError(t, err)

	require.NoError(t, env.engine.ExecutePayment(ownerAddr, payer, big.NewInt(120), crypto.SignatureModeTypedData, sig))
}

func TestPaymentSpendableBound(t *testing.T) {
	env := newPoolEnv(t)
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	payer := key.PubKey().Address().Raw()
	env.deposit(t, payer, 500)

	_, err = env.engine.GeneratePaymentMessage(payer, big.NewInt(501))
	require.ErrorIs(t, err, ErrInsufficientBalance)

	// A pending withdrawal shrinks the spendable balance.
	require.NoError(t, env.engine.RequestWithdrawal(payer, big.NewInt(200)))
	_, err = env.engine.GeneratePaymentMessage(payer, big.NewInt(301))
	require.ErrorIs(t, err, ErrInsufficientBalance)

	sig := signPayment(t, env, key, payer, big.NewInt(300))
	require.NoError(t, env.engine.ExecutePayment(ownerAddr, payer, big.NewInt(300), crypto.SignatureModePersonal, sig))
}

func TestWithdrawalLifecycle(t *testing.T) {
	env := newPoolEnv(t)
	env.deposit(t, holder, 1_000)

	require.ErrorIs(t, env.engine.WithdrawTokens(holder), ErrNoWithdrawal)
	require.ErrorIs(t, env.engine.RequestWithdrawal(holder, big.NewInt(1_001)), ErrInsufficientBalance)

	require.NoError(t, env.engine.RequestWithdrawal(holder, big.NewInt(600)))
	require.ErrorIs(t, env.engine.WithdrawTokens(holder), ErrWithdrawalNotReady)

	env.height += DefaultReleaseDelay
	require.NoError(t, env.engine.WithdrawTokens(holder))
	require.Equal(t, big.NewInt(600), env.token.BalanceOf(holder))

	view, err := env.engine.Account(holder)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(400), view.Account.Balance)
	require.Equal(t, big.NewInt(0), view.Account.WithdrawalAmount)

	supply, err := env.engine.Supply()
	require.NoError(t, err)
	require.Equal(t, big.NewInt(400), supply.Total)
	require.Equal(t, big.NewInt(400), supply.Minimum)
}

func TestWithdrawalOverwriteAndCancel(t *testing.T) {
	env := newPoolEnv(t)
	env.deposit(t, holder, 1_000)

	require.NoError(t, env.engine.RequestWithdrawal(holder, big.NewInt(600)))
	env.height += 10
	// A fresh request overwrites the amount and restarts the clock.
	require.NoError(t, env.engine.RequestWithdrawal(holder, big.NewInt(100)))

	view, err := env.engine.Account(holder)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(100), view.Account.WithdrawalAmount)
	require.Equal(t, env.height+DefaultReleaseDelay, view.Account.WithdrawalReadyAt)

	require.NoError(t, env.engine.CancelWithdrawal(holder))
	view, err = env.engine.Account(holder)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(0), view.Account.WithdrawalAmount)
	require.ErrorIs(t, env.engine.WithdrawTokens(holder), ErrNoWithdrawal)
}

func TestTransferTokens(t *testing.T) {
	env := newPoolEnv(t)
	env.seedSurplus(t, 1_000)

	require.ErrorIs(t, env.engine.TransferTokens(ownerAddr, big.NewInt(100)), ErrWalletNotSet)
	require.NoError(t, env.engine.SetWallet(ownerAddr, walletAddr))

	require.ErrorIs(t, env.engine.TransferTokens(ownerAddr, big.NewInt(1_001)), ErrExceedsAvailable)
	require.NoError(t, env.engine.TransferTokens(ownerAddr, big.NewInt(250)))
	require.Equal(t, big.NewInt(250), env.token.BalanceOf(walletAddr))

	supply, err := env.engine.Supply()
	require.NoError(t, err)
	require.Equal(t, big.NewInt(750), supply.Total)
}

func TestDistributeTokens(t *testing.T) {
	env := newPoolEnv(t)
	env.seedSurplus(t, 1_000)

	require.ErrorIs(t, env.engine.DistributeTokens(ownerAddr, holder, big.NewInt(1_001)), ErrExceedsAvailable)
	require.NoError(t, env.engine.DistributeTokens(ownerAddr, holder, big.NewInt(350)))

	view, err := env.engine.Account(holder)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(350), view.Account.Balance)
	require.False(t, view.Account.Nonce.IsZero())

	supply, err := env.engine.Supply()
	require.NoError(t, err)
	require.Equal(t, big.NewInt(350), supply.Minimum)
	require.Equal(t, big.NewInt(650), supply.Available)
}

func TestEntityValidation(t *testing.T) {
	env := newPoolEnv(t)

	require.ErrorIs(t, env.engine.SetManager(manager, manager), ErrNotOwner)
	require.ErrorIs(t, env.engine.SetManager(ownerAddr, poolAddr), ErrInvalidEntity)

	var tokenAsAddr [20]byte
	copy(tokenAsAddr[:], tokenAsset[:])
	require.ErrorIs(t, env.engine.SetWallet(ownerAddr, tokenAsAddr), ErrInvalidEntity)

	require.NoError(t, env.engine.SetManager(ownerAddr, manager))
	entities, err := env.engine.Entities()
	require.NoError(t, err)
	require.Equal(t, manager, entities.Manager)

	// The manager is an admin but not the owner.
	require.ErrorIs(t, env.engine.SetManager(manager, holder), ErrNotOwner)
}

func TestReleaseDelayBounds(t *testing.T) {
	env := newPoolEnv(t)

	require.ErrorIs(t, env.engine.SetReleaseDelay(ownerAddr, MaxReleaseDelay+1), ErrDelayOutOfRange)
	require.NoError(t, env.engine.SetReleaseDelay(ownerAddr, 0))

	env.deposit(t, holder, 100)
	require.NoError(t, env.engine.RequestWithdrawal(holder, big.NewInt(100)))
	// Zero delay releases immediately.
	require.NoError(t, env.engine.WithdrawTokens(holder))
	require.Equal(t, big.NewInt(100), env.token.BalanceOf(holder))
}
