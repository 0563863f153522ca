package crypto

import (
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// TypedDomain carries the EIP-712 domain fields binding typed-data signatures
// to one deployment of the pool on one chain.
type TypedDomain struct {
	Name              string
	Version           string
	ChainID           uint64
	VerifyingContract [20]byte
	Salt              [32]byte
}

var domainTypeHash = Keccak256Word([]byte(
	"EIP712Domain(string name,string version,uint256 chainId,address verifyingContract,bytes32 salt)"))

// Keccak256Word hashes data and returns the result as a fixed 32-byte word.
func Keccak256Word(data ...[]byte) [32]byte {
	var out [32]byte
	copy(out[:], ethcrypto.Keccak256(data...))
	return out
}

// Uint256Word encodes v as a left-padded 32-byte big-endian word. Negative or
// oversized values saturate to zero; callers validate ranges before hashing.
func Uint256Word(v *big.Int) [32]byte {
	var out [32]byte
	if v == nil || v.Sign() < 0 {
		return out
	}
	word, overflow := uint256.FromBig(v)
	if overflow {
		return out
	}
	return word.Bytes32()
}

// Uint64Word encodes v as a 32-byte big-endian word.
func Uint64Word(v uint64) [32]byte {
	return uint256.NewInt(v).Bytes32()
}

// AddressWord left-pads a 20-byte address into a 32-byte word.
func AddressWord(addr [20]byte) [32]byte {
	var out [32]byte
	copy(out[12:], addr[:])
	return out
}

// Separator computes the EIP-712 domain separator hash.
func (d TypedDomain) Separator() [32]byte {
	nameHash := Keccak256Word([]byte(d.Name))
	versionHash := Keccak256Word([]byte(d.Version))
	chainID := Uint64Word(d.ChainID)
	contract := AddressWord(d.VerifyingContract)
	return Keccak256Word(
		domainTypeHash[:],
		nameHash[:],
		versionHash[:],
		chainID[:],
		contract[:],
		d.Salt[:],
	)
}

// HashStruct computes keccak256(typeHash || fields...), the EIP-712 struct
// hash for a message whose fields are already encoded as 32-byte words in the
// declared order.
func HashStruct(typeHash [32]byte, fields ...[32]byte) [32]byte {
	encoded := make([]byte, 0, 32*(len(fields)+1))
	encoded = append(encoded, typeHash[:]...)
	for _, field := range fields {
		encoded = append(encoded, field[:]...)
	}
	return Keccak256Word(encoded)
}

// TypedDigest assembles the final EIP-712 signing digest:
// keccak256("\x19\x01" || domainSeparator || structHash).
func TypedDigest(domain TypedDomain, structHash [32]byte) [32]byte {
	separator := domain.Separator()
	return Keccak256Word([]byte{0x19, 0x01}, separator[:], structHash[:])
}
