package escrow

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
	vaultAddr = [20]byte{0xee, 0x01}
	alice     = [20]byte{0xaa}
	bob       = [20]byte{0xbb}
	carol     = [20]byte{0xcc}

	erc20Asset = assets.AssetID{0x20}
	nftAsset   = assets.AssetID{0x72, 0x01}
	multiAsset = assets.AssetID{0x11, 0x55}
)

type testEnv struct {
	engine   *Engine
	native   *assets.MemFungible
	erc20    *assets.MemFungible
	nft      *assets.MemNFT
	multi    *assets.MemMultiToken
	recorder *events.Recorder
	domain   crypto.TypedDomain
	now      int64
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		native:   assets.NewMemFungible(),
		erc20:    assets.NewMemFungible(),
		nft:      assets.NewMemNFT(),
		multi:    assets.NewMemMultiToken(),
		recorder: &events.Recorder{},
		now:      1_000,
	}
	registry := assets.NewRegistry(env.native)
	registry.RegisterFungible(erc20Asset, env.erc20)
	registry.RegisterNFT(nftAsset, env.nft)
	registry.RegisterMultiToken(multiAsset, env.multi)

	env.domain = crypto.TypedDomain{Name: "safepool-escrow", Version: "1", ChainID: 1}
	env.engine = NewEngine(registry, vaultAddr, env.domain)
	env.engine.SetState(NewStore(storage.NewMemDB()))
	env.engine.SetEmitter(env.recorder)
	env.engine.SetNowFunc(func() int64 { return env.now })

	env.native.Mint(alice, big.NewInt(1_000_000))
	env.native.Mint(bob, big.NewInt(1_000_000))
	env.native.Mint(carol, big.NewInt(1_000_000))
	return env
}

func secretAndHash(secret string) ([]byte, [32]byte) {
	raw := []byte(secret)
	return raw, crypto.Keccak256Word(raw)
}

func TestDepositCollectNative(t *testing.T) {
	env := newTestEnv(t)
	secret, hash := secretAndHash("open sesame")

	id, err := env.engine.DepositValue(alice, bob, big.NewInt(500), big.NewInt(20), hash)
	require.NoError(t, err)

	require.Equal(t, big.NewInt(999_480), env.native.BalanceOf(alice))
	require.Equal(t, big.NewInt(520), env.native.BalanceOf(vaultAddr))

	req, err := env.engine.Request(id)
	require.NoError(t, err)
	require.Equal(t, alice, req.From)
	require.Equal(t, bob, req.To)

	require.NoError(t, env.engine.CollectValue(bob, alice, bob, big.NewInt(500), big.NewInt(20), hash, secret, nil))
	require.Equal(t, big.NewInt(1_000_500), env.native.BalanceOf(bob))
	// Fees land at the fee collector, which defaults to the vault.
	require.Equal(t, big.NewInt(20), env.native.BalanceOf(vaultAddr))

	_, err = env.engine.Request(id)
	require.ErrorIs(t, err, ErrNotFound)
	require.Contains(t, env.recorder.Types(), EventTypeCollected)
}

func TestDepositRejectsSelfAndDuplicates(t *testing.T) {
	env := newTestEnv(t)
	_, hash := secretAndHash("s")

	_, err := env.engine.DepositValue(alice, alice, big.NewInt(10), big.NewInt(0), hash)
	require.ErrorIs(t, err, ErrSelfTransfer)

	_, err = env.engine.DepositValue(alice, bob, big.NewInt(10), big.NewInt(0), hash)
	require.NoError(t, err)
	_, err = env.engine.DepositValue(alice, bob, big.NewInt(10), big.NewInt(0), hash)
	require.ErrorIs(t, err, ErrDuplicateRequest)

	// Different terms produce a different id and are accepted.
	_, err = env.engine.DepositValue(alice, bob, big.NewInt(11), big.NewInt(0), hash)
	require.NoError(t, err)
}

func TestCollectWrongSecret(t *testing.T) {
	env := newTestEnv(t)
	_, hash := secretAndHash("right")

	_, err := env.engine.DepositValue(alice, bob, big.NewInt(100), big.NewInt(0), hash)
	require.NoError(t, err)

	err = env.engine.CollectValue(bob, alice, bob, big.NewInt(100), big.NewInt(0), hash, []byte("wrong"), nil)
	require.ErrorIs(t, err, ErrWrongSecret)
}

func TestRetrieveRefundsDepositor(t *testing.T) {
	env := newTestEnv(t)
	_, hash := secretAndHash("s")

	_, err := env.engine.DepositValue(alice, bob, big.NewInt(300), big.NewInt(30), hash)
	require.NoError(t, err)

	// Mismatched terms resolve to a different id.
	err = env.engine.RetrieveValue(alice, bob, big.NewInt(301), big.NewInt(30), hash, nil)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, env.engine.RetrieveValue(alice, bob, big.NewInt(300), big.NewInt(30), hash, nil))
	require.Equal(t, big.NewInt(1_000_000), env.native.BalanceOf(alice))
	require.Equal(t, big.NewInt(0), env.native.BalanceOf(vaultAddr))
}

func TestTimedWindows(t *testing.T) {
	env := newTestEnv(t)
	secret, hash := secretAndHash("timed")
	timing := Timing{AvailableAt: 2_000, ExpiresAt: 3_000, AutoRetrieveFees: big.NewInt(5)}

	_, err := env.engine.TimedDepositValue(alice, bob, big.NewInt(200), big.NewInt(10), hash, timing)
	require.NoError(t, err)

	err = env.engine.CollectValue(bob, alice, bob, big.NewInt(200), big.NewInt(10), hash, secret, &timing)
	require.ErrorIs(t, err, ErrNotYetAvailable)

	err = env.engine.AutoRetrieveValue(carol, alice, bob, big.NewInt(200), big.NewInt(10), hash, timing)
	require.ErrorIs(t, err, ErrNotExpired)

	env.now = 3_001
	require.NoError(t, env.engine.AutoRetrieveValue(carol, alice, bob, big.NewInt(200), big.NewInt(10), hash, timing))
	// Value plus the residual fee go home, the incentive pays the caller.
	require.Equal(t, big.NewInt(999_995), env.native.BalanceOf(alice))
	require.Equal(t, big.NewInt(1_000_005), env.native.BalanceOf(carol))
}

func TestTimedCollectInsideWindow(t *testing.T) {
	env := newTestEnv(t)
	secret, hash := secretAndHash("timed")
	timing := Timing{AvailableAt: 2_000, ExpiresAt: 3_000, AutoRetrieveFees: big.NewInt(0)}

	_, err := env.engine.TimedDepositValue(alice, bob, big.NewInt(200), big.NewInt(10), hash, timing)
	require.NoError(t, err)

	env.now = 2_500
	require.NoError(t, env.engine.CollectValue(bob, alice, bob, big.NewInt(200), big.NewInt(10), hash, secret, &timing))
	require.Equal(t, big.NewInt(1_000_200), env.native.BalanceOf(bob))
}

func TestAutoRetrieveFeesBound(t *testing.T) {
	env := newTestEnv(t)
	_, hash := secretAndHash("s")
	timing := Timing{AvailableAt: 0, ExpiresAt: 3_000, AutoRetrieveFees: big.NewInt(11)}

	_, err := env.engine.TimedDepositValue(alice, bob, big.NewInt(200), big.NewInt(10), hash, timing)
	require.ErrorIs(t, err, ErrFeesTooHigh)
}

func TestDepositERC20PullsTokenAndNativeFees(t *testing.T) {
	env := newTestEnv(t)
	secret, hash := secretAndHash("erc20")
	env.erc20.Mint(alice, big.NewInt(10_000))
	require.NoError(t, env.erc20.Approve(alice, vaultAddr, big.NewInt(400)))

	_, err := env.engine.DepositERC20(alice, bob, erc20Asset, big.NewInt(400), big.NewInt(25), hash)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(9_600), env.erc20.BalanceOf(alice))
	require.Equal(t, big.NewInt(400), env.erc20.BalanceOf(vaultAddr))
	require.Equal(t, big.NewInt(25), env.native.BalanceOf(vaultAddr))

	require.NoError(t, env.engine.CollectERC20(bob, alice, bob, erc20Asset, big.NewInt(400), big.NewInt(25), hash, secret, nil))
	require.Equal(t, big.NewInt(400), env.erc20.BalanceOf(bob))
}

func TestDepositERC20WithoutApprovalFails(t *testing.T) {
	env := newTestEnv(t)
	_, hash := secretAndHash("erc20")
	env.erc20.Mint(alice, big.NewInt(10_000))

	_, err := env.engine.DepositERC20(alice, bob, erc20Asset, big.NewInt(400), big.NewInt(0), hash)
	require.Error(t, err)
	require.Equal(t, big.NewInt(10_000), env.erc20.BalanceOf(alice))
}

func TestERC721DepositAndCollect(t *testing.T) {
	env := newTestEnv(t)
	secret, hash := secretAndHash("nft")
	tokenID := big.NewInt(7)
	env.nft.Mint(alice, tokenID)
	require.NoError(t, env.nft.Approve(alice, vaultAddr, tokenID))

	_, err := env.engine.DepositERC721(alice, bob, nftAsset, tokenID, big.NewInt(3), hash)
	require.NoError(t, err)
	owner, err := env.nft.OwnerOf(tokenID)
	require.NoError(t, err)
	require.Equal(t, vaultAddr, owner)

	require.NoError(t, env.engine.CollectERC721(bob, alice, bob, nftAsset, tokenID, big.NewInt(3), hash, secret, nil))
	owner, err = env.nft.OwnerOf(tokenID)
	require.NoError(t, err)
	require.Equal(t, bob, owner)
}

func TestERC721ZeroTokenIDRejected(t *testing.T) {
	env := newTestEnv(t)
	_, hash := secretAndHash("nft")
	_, err := env.engine.DepositERC721(alice, bob, nftAsset, big.NewInt(0), big.NewInt(0), hash)
	require.ErrorIs(t, err, ErrZeroTokenID)
}

func TestSwapFullCycle(t *testing.T) {
	env := newTestEnv(t)
	secret, hash := secretAndHash("swap")
	env.erc20.Mint(alice, big.NewInt(5_000))
	require.NoError(t, env.erc20.Approve(alice, vaultAddr, big.NewInt(1_000)))
	env.multi.Mint(bob, big.NewInt(42), big.NewInt(60))
	env.multi.SetApprovalForAll(bob, vaultAddr, true)

	_, err := env.engine.SwapDepositERC20ToERC1155(alice, bob,
		erc20Asset, big.NewInt(1_000), big.NewInt(10),
		multiAsset, big.NewInt(42), big.NewInt(60), big.NewInt(10),
		hash, nil)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(1_000), env.erc20.BalanceOf(vaultAddr))

	require.NoError(t, env.engine.SwapERC20ToERC1155(bob, alice,
		erc20Asset, big.NewInt(1_000), big.NewInt(10),
		multiAsset, big.NewInt(42), big.NewInt(60), big.NewInt(10),
		hash, secret, nil))

	require.Equal(t, big.NewInt(1_000), env.erc20.BalanceOf(bob))
	require.Equal(t, big.NewInt(60), env.multi.BalanceOf(alice, big.NewInt(42)))
	require.Equal(t, big.NewInt(0), env.multi.BalanceOf(bob, big.NewInt(42)))
	// Both fee legs were native and land at the collector.
	require.Equal(t, big.NewInt(20), env.native.BalanceOf(vaultAddr))
}

func TestSwapOnlyCounterparty(t *testing.T) {
	env := newTestEnv(t)
	secret, hash := secretAndHash("swap")
	env.erc20.Mint(alice, big.NewInt(5_000))
	require.NoError(t, env.erc20.Approve(alice, vaultAddr, big.NewInt(100)))

	leg0 := ERC20Leg(erc20Asset, big.NewInt(100), big.NewInt(0))
	leg1 := NativeLeg(big.NewInt(50), big.NewInt(0))
	_, err := env.engine.SwapDeposit(alice, bob, leg0, leg1, hash, nil)
	require.NoError(t, err)

	err = env.engine.Swap(carol, alice, leg0, leg1, hash, secret, nil)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSwapSameFungibleAssetRejected(t *testing.T) {
	env := newTestEnv(t)
	_, hash := secretAndHash("swap")

	_, err := env.engine.SwapDeposit(alice, bob,
		NativeLeg(big.NewInt(10), big.NewInt(0)),
		NativeLeg(big.NewInt(20), big.NewInt(0)), hash, nil)
	require.ErrorIs(t, err, ErrSameAsset)

	_, err = env.engine.SwapDepositERC20(alice, bob,
		erc20Asset, big.NewInt(10), big.NewInt(0),
		erc20Asset, big.NewInt(20), big.NewInt(0), hash, nil)
	require.ErrorIs(t, err, ErrSameAsset)
}

func TestSwapReject(t *testing.T) {
	env := newTestEnv(t)
	_, hash := secretAndHash("swap")

	leg0 := NativeLeg(big.NewInt(100), big.NewInt(5))
	leg1 := ERC20Leg(erc20Asset, big.NewInt(10), big.NewInt(0))
	_, err := env.engine.SwapDeposit(alice, bob, leg0, leg1, hash, nil)
	require.NoError(t, err)

	err = env.engine.Reject(carol, alice, leg0, leg1, hash, nil)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, env.engine.Reject(bob, alice, leg0, leg1, hash, nil))
	require.Equal(t, big.NewInt(1_000_000), env.native.BalanceOf(alice))
	require.Contains(t, env.recorder.Types(), EventTypeSwapRejected)
}

func TestSwapRetrieve(t *testing.T) {
	env := newTestEnv(t)
	_, hash := secretAndHash("swap")

	leg0 := NativeLeg(big.NewInt(100), big.NewInt(5))
	leg1 := ERC20Leg(erc20Asset, big.NewInt(10), big.NewInt(0))
	_, err := env.engine.SwapDeposit(alice, bob, leg0, leg1, hash, nil)
	require.NoError(t, err)

	require.NoError(t, env.engine.SwapRetrieve(alice, bob, leg0, leg1, hash, nil))
	require.Equal(t, big.NewInt(1_000_000), env.native.BalanceOf(alice))
}

func TestSwapBatchERC1155(t *testing.T) {
	env := newTestEnv(t)
	secret, hash := secretAndHash("batch")
	ids0 := []*big.Int{big.NewInt(1), big.NewInt(2)}
	vals0 := []*big.Int{big.NewInt(10), big.NewInt(20)}
	for i := range ids0 {
		env.multi.Mint(alice, ids0[i], vals0[i])
	}
	env.multi.SetApprovalForAll(alice, vaultAddr, true)
	env.erc20.Mint(bob, big.NewInt(500))
	require.NoError(t, env.erc20.Approve(bob, vaultAddr, big.NewInt(500)))

	leg0 := ERC1155BatchLeg(multiAsset, ids0, vals0, big.NewInt(0))
	leg1 := ERC20Leg(erc20Asset, big.NewInt(500), big.NewInt(0))
	_, err := env.engine.SwapDeposit(alice, bob, leg0, leg1, hash, nil)
	require.NoError(t, err)

	require.NoError(t, env.engine.Swap(bob, alice, leg0, leg1, hash, secret, nil))
	require.Equal(t, big.NewInt(10), env.multi.BalanceOf(bob, big.NewInt(1)))
	require.Equal(t, big.NewInt(20), env.multi.BalanceOf(bob, big.NewInt(2)))
	require.Equal(t, big.NewInt(500), env.erc20.BalanceOf(alice))
}

func TestBatchLengthMismatch(t *testing.T) {
	env := newTestEnv(t)
	_, hash := secretAndHash("batch")
	_, err := env.engine.DepositBatchERC1155(alice, bob, multiAsset,
		[]*big.Int{big.NewInt(1), big.NewInt(2)},
		[]*big.Int{big.NewInt(10)},
		big.NewInt(0), hash)
	require.ErrorIs(t, err, ErrLengthMismatch)
}

func TestDepositERC20AbortsWhenFeesUnfunded(t *testing.T) {
	env := newTestEnv(t)
	_, hash := secretAndHash("no native")
	dave := [20]byte{0xdd}
	env.erc20.Mint(dave, big.NewInt(100))
	require.NoError(t, env.erc20.Approve(dave, vaultAddr, big.NewInt(100)))

	// Dave holds the token but no native value for the fee leg.
	id, err := env.engine.DepositERC20(dave, bob, erc20Asset, big.NewInt(100), big.NewInt(10), hash)
	require.ErrorIs(t, err, assets.ErrInsufficientBalance)

	require.Equal(t, big.NewInt(100), env.erc20.BalanceOf(dave))
	require.Equal(t, big.NewInt(0), env.erc20.BalanceOf(vaultAddr))
	require.Equal(t, big.NewInt(0), env.native.BalanceOf(vaultAddr))
	_, err = env.engine.Request(id)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDepositERC20ReturnsFeesWhenTokenPullFails(t *testing.T) {
	env := newTestEnv(t)
	_, hash := secretAndHash("no approval")
	env.erc20.Mint(alice, big.NewInt(400))

	// Alice can cover the fee but never approved the vault for the token,
	// so the lock fails after the fee pull and must hand it back.
	id, err := env.engine.DepositERC20(alice, bob, erc20Asset, big.NewInt(400), big.NewInt(25), hash)
	require.ErrorIs(t, err, assets.ErrInsufficientAllowance)

	require.Equal(t, big.NewInt(1_000_000), env.native.BalanceOf(alice))
	require.Equal(t, big.NewInt(400), env.erc20.BalanceOf(alice))
	require.Equal(t, big.NewInt(0), env.native.BalanceOf(vaultAddr))
	_, err = env.engine.Request(id)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSwapKeepsDepositWhenCounterpartyUnfunded(t *testing.T) {
	env := newTestEnv(t)
	secret, hash := secretAndHash("one-sided")

	_, err := env.engine.SwapDepositValueToERC20(alice, bob,
		big.NewInt(100), big.NewInt(0),
		erc20Asset, big.NewInt(50), big.NewInt(5), hash, nil)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(100), env.native.BalanceOf(vaultAddr))

	// Bob never acquired the tokens for his leg. His fee pull is undone
	// and the open swap stays intact.
	err = env.engine.SwapValueToERC20(bob, alice,
		big.NewInt(100), big.NewInt(0),
		erc20Asset, big.NewInt(50), big.NewInt(5), hash, secret, nil)
	require.ErrorIs(t, err, assets.ErrInsufficientAllowance)
	require.Equal(t, big.NewInt(1_000_000), env.native.BalanceOf(bob))
	require.Equal(t, big.NewInt(100), env.native.BalanceOf(vaultAddr))

	require.NoError(t, env.engine.SwapRetrieve(alice, bob,
		NativeLeg(big.NewInt(100), big.NewInt(0)),
		ERC20Leg(erc20Asset, big.NewInt(50), big.NewInt(5)), hash, nil))
	require.Equal(t, big.NewInt(1_000_000), env.native.BalanceOf(alice))
}
