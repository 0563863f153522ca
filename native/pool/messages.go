package pool

import (
	"math/big"

	"safepool/core/types"
	"safepool/crypto"
)

// Canonical signed-message layouts. Personal-mode messages are the raw byte
// concatenation below, later keccak-hashed and prefix-wrapped by the
// verifier; typed-data mode hashes the same fields as an EIP-712 struct.
//
//	uid[32] || selector[4] || account[20] || value[32] || tail[32]
//
// where tail is the secret hash for acceptance messages and the padded
// current nonce for payment messages. The uid is the pool's domain separator
// and scopes every signature to one deployment.

var (
	acceptSelector  = crypto.Keccak256Word([]byte("acceptTokens(address,uint256,bytes32)"))
	paymentSelector = crypto.Keccak256Word([]byte("executePayment(address,uint256)"))

	acceptTypeHash = crypto.Keccak256Word([]byte(
		"AcceptTokens(address recipient,uint256 value,bytes32 secretHash)"))
	paymentTypeHash = crypto.Keccak256Word([]byte(
		"Payment(address from,uint256 value,bytes32 nonce)"))
)

func nonceWord(n types.Nonce) [32]byte {
	var word [32]byte
	copy(word[32-types.NonceSize:], n[:])
	return word
}

func encodeMessage(uid [32]byte, selector [32]byte, account [20]byte, value *big.Int, tail [32]byte) []byte {
	valueWord := crypto.Uint256Word(value)
	msg := make([]byte, 0, 32+4+20+32+32)
	msg = append(msg, uid[:]...)
	msg = append(msg, selector[:4]...)
	msg = append(msg, account[:]...)
	msg = append(msg, valueWord[:]...)
	msg = append(msg, tail[:]...)
	return msg
}

// AcceptTokensMessage is the personal-mode payload a recipient signs to let
// an admin accept an issued grant on their behalf.
func AcceptTokensMessage(uid [32]byte, recipient [20]byte, value *big.Int, secretHash [32]byte) []byte {
	return encodeMessage(uid, acceptSelector, recipient, value, secretHash)
}

// PaymentMessage is the personal-mode payload an account signs to authorise a
// payment. It embeds the account's current nonce, making it single-use.
func PaymentMessage(uid [32]byte, from [20]byte, value *big.Int, nonce types.Nonce) []byte {
	return encodeMessage(uid, paymentSelector, from, value, nonceWord(nonce))
}

// AcceptTokensTypedDigest is the EIP-712 digest for the acceptance struct.
func AcceptTokensTypedDigest(domain crypto.TypedDomain, recipient [20]byte, value *big.Int, secretHash [32]byte) [32]byte {
	structHash := crypto.HashStruct(acceptTypeHash,
		crypto.AddressWord(recipient),
		crypto.Uint256Word(value),
		secretHash,
	)
	return crypto.TypedDigest(domain, structHash)
}

// PaymentTypedDigest is the EIP-712 digest for the payment struct.
func PaymentTypedDigest(domain crypto.TypedDomain, from [20]byte, value *big.Int, nonce types.Nonce) [32]byte {
	structHash := crypto.HashStruct(paymentTypeHash,
		crypto.AddressWord(from),
		crypto.Uint256Word(value),
		nonceWord(nonce),
	)
	return crypto.TypedDigest(domain, structHash)
}
