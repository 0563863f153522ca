package escrow

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequestIDDeterministic(t *testing.T) {
	_, hash := secretAndHash("terms")
	leg := NativeLeg(big.NewInt(500), big.NewInt(10))

	first := RequestID(KindTransfer, alice, bob, leg, nil, hash, nil)
	second := RequestID(KindTransfer, alice, bob, NativeLeg(big.NewInt(500), big.NewInt(10)), nil, hash, nil)
	require.Equal(t, first, second)
}

func TestRequestIDDivergesOnEveryTerm(t *testing.T) {
	_, hash := secretAndHash("terms")
	_, otherHash := secretAndHash("other")
	leg := NativeLeg(big.NewInt(500), big.NewInt(10))
	base := RequestID(KindTransfer, alice, bob, leg, nil, hash, nil)

	variants := [][32]byte{
		RequestID(KindSwap, alice, bob, leg, nil, hash, nil),
		RequestID(KindTransfer, carol, bob, leg, nil, hash, nil),
		RequestID(KindTransfer, alice, carol, leg, nil, hash, nil),
		RequestID(KindTransfer, alice, bob, NativeLeg(big.NewInt(501), big.NewInt(10)), nil, hash, nil),
		RequestID(KindTransfer, alice, bob, NativeLeg(big.NewInt(500), big.NewInt(11)), nil, hash, nil),
		RequestID(KindTransfer, alice, bob, ERC20Leg(erc20Asset, big.NewInt(500), big.NewInt(10)), nil, hash, nil),
		RequestID(KindTransfer, alice, bob, leg, nil, otherHash, nil),
		RequestID(KindTransfer, alice, bob, leg, nil, hash, &Timing{AvailableAt: 1, AutoRetrieveFees: big.NewInt(0)}),
		RequestID(KindTransfer, alice, bob, leg, leg, hash, nil),
	}
	seen := map[[32]byte]bool{base: true}
	for i, id := range variants {
		require.False(t, seen[id], "variant %d collided", i)
		seen[id] = true
	}
}

func TestRequestIDBatchOrderMatters(t *testing.T) {
	_, hash := secretAndHash("batch")
	forward := ERC1155BatchLeg(multiAsset,
		[]*big.Int{big.NewInt(1), big.NewInt(2)},
		[]*big.Int{big.NewInt(10), big.NewInt(20)},
		big.NewInt(0))
	reversed := ERC1155BatchLeg(multiAsset,
		[]*big.Int{big.NewInt(2), big.NewInt(1)},
		[]*big.Int{big.NewInt(20), big.NewInt(10)},
		big.NewInt(0))

	require.NotEqual(t,
		RequestID(KindTransfer, alice, bob, forward, nil, hash, nil),
		RequestID(KindTransfer, alice, bob, reversed, nil, hash, nil))
}

func TestHiddenCommitmentsDistinct(t *testing.T) {
	_, hash := secretAndHash("hidden")
	leg := NativeLeg(big.NewInt(100), big.NewInt(5))

	transfer := HiddenCommitment(alice, bob, leg, hash)
	swap := HiddenSwapCommitment(alice, bob, leg, NativeLeg(big.NewInt(1), big.NewInt(0)), hash)
	request := RequestID(KindTransfer, alice, bob, leg, nil, hash, nil)

	require.NotEqual(t, transfer, swap)
	require.NotEqual(t, transfer, request)
}
