package escrow

import (
	"encoding/binary"
	"math/big"

	"safepool/crypto"
)

// Request ids are content-addressed: the keccak256 hash of a canonical
// serialization of every economic term. The encoding is fixed so ids stay
// reproducible across implementations:
//
//	tag[32] || kind[1] || from[20] || to[20] || leg0 || leg1 || secretHash[32] || timing
//
// with each leg encoded as
//
//	kind[1] || asset[20] || value[32] || tokenId[32] || count[8] || (id[32] value[32])* || fees[32]
//
// and timing, when present, as availableAt[8] || expiresAt[8] || fees[32].
// All multi-byte integers are big endian; absent legs and timings contribute
// a single zero byte.

var requestTag = crypto.Keccak256Word([]byte("safepool/escrow/request/v1"))

// hiddenTag prefixes the commitment preimage of hidden requests.
var hiddenTag = crypto.Keccak256Word([]byte("safepool/escrow/hidden/v1"))

func appendWord(buf []byte, v *big.Int) []byte {
	word := crypto.Uint256Word(v)
	return append(buf, word[:]...)
}

func appendUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendLeg(buf []byte, leg *Leg) []byte {
	if leg == nil {
		return append(buf, 0)
	}
	buf = append(buf, byte(leg.Kind)+1)
	buf = append(buf, leg.Asset[:]...)
	buf = appendWord(buf, leg.Value)
	buf = appendWord(buf, leg.TokenID)
	buf = appendUint64(buf, uint64(len(leg.TokenIDs)))
	for i := range leg.TokenIDs {
		buf = appendWord(buf, leg.TokenIDs[i])
		buf = appendWord(buf, leg.Values[i])
	}
	return appendWord(buf, leg.Fees)
}

func appendTiming(buf []byte, timing *Timing) []byte {
	if timing == nil {
		return append(buf, 0)
	}
	buf = append(buf, 1)
	buf = appendUint64(buf, uint64(timing.AvailableAt))
	buf = appendUint64(buf, uint64(timing.ExpiresAt))
	return appendWord(buf, timing.AutoRetrieveFees)
}

// RequestID derives the canonical id for a request's terms.
func RequestID(kind RequestKind, from, to [20]byte, leg0, leg1 *Leg, secretHash [32]byte, timing *Timing) [32]byte {
	buf := make([]byte, 0, 256)
	buf = append(buf, requestTag[:]...)
	buf = append(buf, byte(kind))
	buf = append(buf, from[:]...)
	buf = append(buf, to[:]...)
	buf = appendLeg(buf, leg0)
	buf = appendLeg(buf, leg1)
	buf = append(buf, secretHash[:]...)
	buf = appendTiming(buf, timing)
	return crypto.Keccak256Word(buf)
}

// HiddenCommitment derives the commitment id a depositor computes off-chain
// for a hidden transfer; the same terms must be re-presented at collection.
func HiddenCommitment(from, to [20]byte, leg *Leg, secretHash [32]byte) [32]byte {
	buf := make([]byte, 0, 192)
	buf = append(buf, hiddenTag[:]...)
	buf = append(buf, from[:]...)
	buf = append(buf, to[:]...)
	buf = appendLeg(buf, leg)
	buf = append(buf, secretHash[:]...)
	return crypto.Keccak256Word(buf)
}

// HiddenSwapCommitment derives the commitment id for a hidden swap deposit.
func HiddenSwapCommitment(from, to [20]byte, leg0, leg1 *Leg, secretHash [32]byte) [32]byte {
	buf := make([]byte, 0, 256)
	buf = append(buf, hiddenTag[:]...)
	buf = append(buf, from[:]...)
	buf = append(buf, to[:]...)
	buf = appendLeg(buf, leg0)
	buf = appendLeg(buf, leg1)
	buf = append(buf, secretHash[:]...)
	return crypto.Keccak256Word(buf)
}
