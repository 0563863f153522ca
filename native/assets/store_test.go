package assets

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"safepool/storage"
)

var storeAsset = AssetID{0x30, 0x01}

func TestStoreFungibleTransferAndAllowance(t *testing.T) {
	db := storage.NewMemDB()
	ledger := NewStoreFungible(db, storeAsset)
	alice := [20]byte{0x0a}
	bob := [20]byte{0x0b}
	carol := [20]byte{0x0c}

	require.NoError(t, ledger.Mint(alice, big.NewInt(1000)))
	require.Equal(t, "1000", ledger.BalanceOf(alice).String())

	require.NoError(t, ledger.Transfer(alice, bob, big.NewInt(400)))
	require.Equal(t, "600", ledger.BalanceOf(alice).String())
	require.Equal(t, "400", ledger.BalanceOf(bob).String())

	require.ErrorIs(t, ledger.Transfer(bob, alice, big.NewInt(500)), ErrInsufficientBalance)

	require.ErrorIs(t, ledger.TransferFrom(carol, alice, bob, big.NewInt(100)), ErrInsufficientAllowance)
	require.NoError(t, ledger.Approve(alice, carol, big.NewInt(150)))
	require.NoError(t, ledger.TransferFrom(carol, alice, bob, big.NewInt(100)))
	require.Equal(t, "50", ledger.Allowance(alice, carol).String())
}

func TestStoreFungibleSurvivesReopen(t *testing.T) {
	db := storage.NewMemDB()
	alice := [20]byte{0x0a}
	require.NoError(t, NewStoreFungible(db, storeAsset).Mint(alice, big.NewInt(77)))

	reopened := NewStoreFungible(db, storeAsset)
	require.Equal(t, "77", reopened.BalanceOf(alice).String())
}

func TestStoreFungibleAssetsAreIsolated(t *testing.T) {
	db := storage.NewMemDB()
	alice := [20]byte{0x0a}
	require.NoError(t, NewStoreFungible(db, storeAsset).Mint(alice, big.NewInt(10)))

	other := NewStoreFungible(db, AssetID{0x30, 0x02})
	require.Equal(t, "0", other.BalanceOf(alice).String())
}

func TestStoreNFTLifecycle(t *testing.T) {
	db := storage.NewMemDB()
	ledger := NewStoreNFT(db, storeAsset)
	alice := [20]byte{0x0a}
	bob := [20]byte{0x0b}
	vault := [20]byte{0xee}
	tokenID := big.NewInt(7)

	require.NoError(t, ledger.Mint(alice, tokenID))
	owner, err := ledger.OwnerOf(tokenID)
	require.NoError(t, err)
	require.Equal(t, alice, owner)

	require.ErrorIs(t, ledger.TransferFrom(vault, alice, bob, tokenID), ErrNotApproved)
	require.ErrorIs(t, ledger.Approve(bob, vault, tokenID), ErrNotOwner)

	require.NoError(t, ledger.Approve(alice, vault, tokenID))
	require.NoError(t, ledger.TransferFrom(vault, alice, bob, tokenID))
	owner, err = ledger.OwnerOf(tokenID)
	require.NoError(t, err)
	require.Equal(t, bob, owner)

	// Approval does not survive the transfer.
	require.ErrorIs(t, ledger.TransferFrom(vault, bob, alice, tokenID), ErrNotApproved)

	_, err = ledger.OwnerOf(big.NewInt(99))
	require.ErrorIs(t, err, ErrUnknownToken)
}

func TestStoreMultiTokenBatch(t *testing.T) {
	db := storage.NewMemDB()
	ledger := NewStoreMultiToken(db, storeAsset)
	alice := [20]byte{0x0a}
	bob := [20]byte{0x0b}
	vault := [20]byte{0xee}

	require.NoError(t, ledger.Mint(alice, big.NewInt(1), big.NewInt(10)))
	require.NoError(t, ledger.Mint(alice, big.NewInt(2), big.NewInt(5)))

	require.ErrorIs(t,
		ledger.SafeTransferFrom(vault, alice, bob, big.NewInt(1), big.NewInt(3)),
		ErrNotApproved)

	ledger.SetApprovalForAll(alice, vault, true)
	require.True(t, ledger.IsApprovedForAll(alice, vault))

	// Duplicate ids in one batch are summed before the balance check; 6+6
	// exceeds the 10 held so nothing moves.
	err := ledger.SafeBatchTransferFrom(vault, alice, bob,
		[]*big.Int{big.NewInt(1), big.NewInt(1)},
		[]*big.Int{big.NewInt(6), big.NewInt(6)})
	require.ErrorIs(t, err, ErrInsufficientBalance)
	require.Equal(t, "10", ledger.BalanceOf(alice, big.NewInt(1)).String())

	require.NoError(t, ledger.SafeBatchTransferFrom(vault, alice, bob,
		[]*big.Int{big.NewInt(1), big.NewInt(2)},
		[]*big.Int{big.NewInt(4), big.NewInt(5)}))
	require.Equal(t, "4", ledger.BalanceOf(bob, big.NewInt(1)).String())
	require.Equal(t, "5", ledger.BalanceOf(bob, big.NewInt(2)).String())
	require.Equal(t, "0", ledger.BalanceOf(alice, big.NewInt(2)).String())

	ledger.SetApprovalForAll(alice, vault, false)
	require.False(t, ledger.IsApprovedForAll(alice, vault))
}
