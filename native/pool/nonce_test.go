package pool

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"safepool/core/types"
)

func fixedEntropy(fill byte) entropyFn {
	return func(b []byte) error {
		for i := range b {
			b[i] = fill
		}
		return nil
	}
}

func TestInitialNonceNeverZero(t *testing.T) {
	n, err := initialNonce(fixedEntropy(0x00), 0)
	require.NoError(t, err)
	require.False(t, n.IsZero())

	parts := unpackNonce(n)
	require.Equal(t, uint64(1), parts.Count)
}

func TestNoncePackRoundTrip(t *testing.T) {
	parts := nonceParts{Count: 0xdeadbeef, Salt: [7]byte{1, 2, 3, 4, 5, 6, 7}, Timestamp: 0x42}
	require.Equal(t, parts, unpackNonce(packNonce(parts)))
}

func TestAdvanceNonceChangesEverySignedField(t *testing.T) {
	n1, err := initialNonce(fixedEntropy(0x11), 100)
	require.NoError(t, err)
	n2, err := advanceNonce(n1, fixedEntropy(0x22), 200)
	require.NoError(t, err)

	require.NotEqual(t, n1, n2)
	p1, p2 := unpackNonce(n1), unpackNonce(n2)
	require.Equal(t, p1.Count+1, p2.Count)
	require.NotEqual(t, p1.Salt, p2.Salt)
	require.Equal(t, byte(200), p2.Timestamp)
}

func TestAdvanceNonceCounterWraps(t *testing.T) {
	var n types.Nonce
	parts := nonceParts{Count: ^uint64(0)}
	n = packNonce(parts)

	next, err := advanceNonce(n, fixedEntropy(0x33), 0)
	require.NoError(t, err)
	require.Equal(t, uint64(1), unpackNonce(next).Count)
}

func TestMessageLayouts(t *testing.T) {
	uid := [32]byte{0xaa}
	account := [20]byte{0xbb}
	tail := [32]byte{0xcc}

	msg := AcceptTokensMessage(uid, account, big.NewInt(77), tail)
	require.Len(t, msg, 120)
	require.Equal(t, uid[:], msg[:32])
	require.Equal(t, acceptSelector[:4], msg[32:36])
	require.Equal(t, account[:], msg[36:56])
	require.Equal(t, byte(77), msg[87])
	require.Equal(t, tail[:], msg[88:])

	var nonce types.Nonce
	nonce[0] = 0x01
	pay := PaymentMessage(uid, account, big.NewInt(1), nonce)
	require.Len(t, pay, 120)
	require.Equal(t, paymentSelector[:4], pay[32:36])
	// The 24-byte nonce right-aligns in the 32-byte tail word.
	require.Equal(t, byte(0x01), pay[88+8])
}

func TestPaymentMessagesDifferPerNonce(t *testing.T) {
	uid := [32]byte{0x01}
	account := [20]byte{0x02}
	n1, _ := initialNonce(fixedEntropy(0x0a), 1)
	n2, _ := advanceNonce(n1, fixedEntropy(0x0b), 2)

	require.NotEqual(t,
		PaymentMessage(uid, account, big.NewInt(5), n1),
		PaymentMessage(uid, account, big.NewInt(5), n2))
}
