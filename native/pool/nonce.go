package pool

import (
	"crypto/rand"
	"encoding/binary"

	"safepool/core/types"
)

// The 192-bit payment nonce packs three fields big endian:
//
//	bytes [0:16)  counter, monotonically incremented on every executed payment
//	bytes [16:23) salt, regenerated from the entropy source on every advance
//	byte  [23]    timestamp tag, low byte of the clock at the last advance
//
// The counter occupies a 128-bit field but is maintained in its low 64 bits.
// A zero nonce marks an account that has never been initialised; initial
// nonces are guaranteed non-zero by forcing the counter to one.

const (
	nonceCounterEnd = 16
	nonceSaltEnd    = 23
)

type nonceParts struct {
	Count     uint64
	Salt      [7]byte
	Timestamp byte
}

func unpackNonce(n types.Nonce) nonceParts {
	var parts nonceParts
	parts.Count = binary.BigEndian.Uint64(n[nonceCounterEnd-8 : nonceCounterEnd])
	copy(parts.Salt[:], n[nonceCounterEnd:nonceSaltEnd])
	parts.Timestamp = n[nonceSaltEnd]
	return parts
}

func packNonce(parts nonceParts) types.Nonce {
	var n types.Nonce
	binary.BigEndian.PutUint64(n[nonceCounterEnd-8:nonceCounterEnd], parts.Count)
	copy(n[nonceCounterEnd:nonceSaltEnd], parts.Salt[:])
	n[nonceSaltEnd] = parts.Timestamp
	return n
}

// entropyFn fills a salt. Swapped for a deterministic source in tests.
type entropyFn func(b []byte) error

func cryptoEntropy(b []byte) error {
	_, err := rand.Read(b)
	return err
}

// initialNonce builds the lazily-assigned first nonce for an account. The
// counter starts at one so the packed value can never be all zeroes.
func initialNonce(entropy entropyFn, now int64) (types.Nonce, error) {
	parts := nonceParts{Count: 1, Timestamp: byte(now)}
	if err := entropy(parts.Salt[:]); err != nil {
		return types.Nonce{}, err
	}
	return packNonce(parts), nil
}

// advanceNonce regenerates the nonce after a successful payment: counter
// incremented, fresh salt, fresh timestamp tag. This single mutation
// invalidates every previously signed payment message for the account.
func advanceNonce(current types.Nonce, entropy entropyFn, now int64) (types.Nonce, error) {
	parts := unpackNonce(current)
	parts.Count++
	if parts.Count == 0 {
		parts.Count = 1
	}
	parts.Timestamp = byte(now)
	if err := entropy(parts.Salt[:]); err != nil {
		return types.Nonce{}, err
	}
	return packNonce(parts), nil
}
