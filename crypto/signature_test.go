package crypto

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignAndRecover(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)
	addr := key.PubKey().Address().Raw()

	msg := []byte("authorize something")
	digest, err := Digest(SignatureModePersonal, msg)
	require.NoError(t, err)
	sig, err := Sign(digest, key)
	require.NoError(t, err)
	require.Len(t, sig, SignatureLength)

	require.NoError(t, VerifySigner(SignatureModePersonal, msg, sig, addr))

	recovered, err := RecoverSigner(digest, sig)
	require.NoError(t, err)
	require.Equal(t, addr, recovered)
}

func TestRecoverAcceptsLegacyRecoveryID(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)
	addr := key.PubKey().Address().Raw()

	digest, err := Digest(SignatureModePersonal, []byte("legacy v"))
	require.NoError(t, err)
	sig, err := Sign(digest, key)
	require.NoError(t, err)

	legacy := append([]byte(nil), sig...)
	legacy[64] += 27
	recovered, err := RecoverSigner(digest, legacy)
	require.NoError(t, err)
	require.Equal(t, addr, recovered)
}

func TestVerifySignerMismatch(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)
	other, err := GeneratePrivateKey()
	require.NoError(t, err)

	msg := []byte("payload")
	digest, err := Digest(SignatureModePersonal, msg)
	require.NoError(t, err)
	sig, err := Sign(digest, key)
	require.NoError(t, err)

	err = VerifySigner(SignatureModePersonal, msg, sig, other.PubKey().Address().Raw())
	require.ErrorIs(t, err, ErrSignerMismatch)

	// Tampered payloads recover a different signer, same uniform error.
	err = VerifySigner(SignatureModePersonal, []byte("payloax"), sig, key.PubKey().Address().Raw())
	require.ErrorIs(t, err, ErrSignerMismatch)

	// Garbage signatures are also folded into the mismatch error.
	err = VerifySigner(SignatureModePersonal, msg, make([]byte, SignatureLength), key.PubKey().Address().Raw())
	require.ErrorIs(t, err, ErrSignerMismatch)
}

func TestDigestModeValidation(t *testing.T) {
	_, err := Digest(SignatureModeTypedData, []byte("short"))
	require.Error(t, err)

	word := make([]byte, 32)
	word[31] = 1
	digest, err := Digest(SignatureModeTypedData, word)
	require.NoError(t, err)
	require.Equal(t, word, digest[:])

	_, err = Digest(SignatureMode(99), []byte("x"))
	require.Error(t, err)
}

func TestTypedDigestBindsDomain(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)
	addr := key.PubKey().Address().Raw()

	typeHash := Keccak256Word([]byte("Thing(uint256 value)"))
	structHash := HashStruct(typeHash, Uint256Word(big.NewInt(5)))

	d1 := TypedDomain{Name: "pool", Version: "1", ChainID: 1}
	d2 := TypedDomain{Name: "pool", Version: "1", ChainID: 2}
	digest1 := TypedDigest(d1, structHash)
	digest2 := TypedDigest(d2, structHash)
	require.NotEqual(t, digest1, digest2)

	sig, err := Sign(digest1, key)
	require.NoError(t, err)
	require.NoError(t, VerifySigner(SignatureModeTypedData, digest1[:], sig, addr))
	require.ErrorIs(t, VerifySigner(SignatureModeTypedData, digest2[:], sig, addr), ErrSignerMismatch)
}

func TestWordEncodings(t *testing.T) {
	require.Equal(t, [32]byte{}, Uint256Word(nil))
	require.Equal(t, [32]byte{}, Uint256Word(big.NewInt(-1)))

	v := Uint256Word(big.NewInt(0x0102))
	require.Equal(t, byte(0x01), v[30])
	require.Equal(t, byte(0x02), v[31])

	addr := [20]byte{0xff}
	word := AddressWord(addr)
	require.Equal(t, byte(0), word[11])
	require.Equal(t, byte(0xff), word[12])
}

func TestAddressRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)
	addr := key.PubKey().Address()

	decoded, err := DecodeAddress(addr.String())
	require.NoError(t, err)
	require.Equal(t, addr.Raw(), decoded.Raw())

	_, err = DecodeAddress("not-an-address")
	require.Error(t, err)
}

func TestPrivateKeyFromHex(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)

	restored, err := PrivateKeyFromBytes(key.Bytes())
	require.NoError(t, err)
	require.Equal(t, key.PubKey().Address().Raw(), restored.PubKey().Address().Raw())
}
