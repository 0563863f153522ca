package crypto

import (
	"errors"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// SignatureMode selects how an authorization digest is constructed before
// signer recovery. Personal mode wraps the message hash with the Ethereum
// signed-message prefix; TypedData mode follows the EIP-712 encoding.
type SignatureMode uint8

const (
	SignatureModePersonal SignatureMode = iota
	SignatureModeTypedData
)

// SignatureLength is the raw secp256k1 signature size: r || s || v.
const SignatureLength = 65

var (
	ErrSignatureLength  = errors.New("crypto: signature must be 65 bytes")
	ErrSignerMismatch   = errors.New("crypto: recovered signer mismatch")
	errUnknownSignature = errors.New("crypto: unknown signature mode")
)

var personalPrefix = []byte("\x19Ethereum Signed Message:\n32")

// PersonalDigest wraps an already-hashed message with the signed-message
// prefix. The message hashed here is expected to carry the pool uid as its
// leading 32 bytes, which is what scopes signatures to one deployment.
func PersonalDigest(messageHash [32]byte) [32]byte {
	var digest [32]byte
	copy(digest[:], ethcrypto.Keccak256(personalPrefix, messageHash[:]))
	return digest
}

// Digest computes the recoverable digest for the given mode. For personal
// mode, input is the raw message bytes; for typed-data mode, input must be the
// precomputed EIP-712 digest and is returned unchanged.
func Digest(mode SignatureMode, input []byte) ([32]byte, error) {
	var digest [32]byte
	switch mode {
	case SignatureModePersonal:
		var msgHash [32]byte
		copy(msgHash[:], ethcrypto.Keccak256(input))
		return PersonalDigest(msgHash), nil
	case SignatureModeTypedData:
		if len(input) != 32 {
			return digest, fmt.Errorf("crypto: typed data digest must be 32 bytes, got %d", len(input))
		}
		copy(digest[:], input)
		return digest, nil
	default:
		return digest, errUnknownSignature
	}
}

// RecoverSigner recovers the 20-byte address that produced sig over digest.
func RecoverSigner(digest [32]byte, sig []byte) ([20]byte, error) {
	var addr [20]byte
	if len(sig) != SignatureLength {
		return addr, ErrSignatureLength
	}
	normalized := append([]byte(nil), sig...)
	// Accept both the raw 0/1 recovery id and the transaction-style 27/28.
	if normalized[64] >= 27 {
		normalized[64] -= 27
	}
	pubKey, err := ethcrypto.SigToPub(digest[:], normalized)
	if err != nil {
		return addr, fmt.Errorf("crypto: recover signer: %w", err)
	}
	copy(addr[:], ethcrypto.PubkeyToAddress(*pubKey).Bytes())
	return addr, nil
}

// VerifySigner checks that sig over the digest for the given mode recovers to
// expected. All mismatches are reported uniformly as ErrSignerMismatch.
func VerifySigner(mode SignatureMode, input []byte, sig []byte, expected [20]byte) error {
	digest, err := Digest(mode, input)
	if err != nil {
		return err
	}
	recovered, err := RecoverSigner(digest, sig)
	if err != nil {
		return ErrSignerMismatch
	}
	if recovered != expected {
		return ErrSignerMismatch
	}
	return nil
}

// Sign produces a 65-byte recoverable signature over the digest.
func Sign(digest [32]byte, key *PrivateKey) ([]byte, error) {
	if key == nil || key.PrivateKey == nil {
		return nil, fmt.Errorf("crypto: nil signing key")
	}
	return ethcrypto.Sign(digest[:], key.PrivateKey)
}
