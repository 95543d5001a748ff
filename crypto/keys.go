package crypto

import (
	"crypto/ecdsa"
	"errors"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

var errNilKey = errors.New("crypto: nil account key")

// AccountKey is the secp256k1 key that signs for one account.
type AccountKey struct {
	priv *ecdsa.PrivateKey
}

// NewAccountKey draws a fresh key from the system random source.
func NewAccountKey() (*AccountKey, error) {
	priv, err := ethcrypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return &AccountKey{priv: priv}, nil
}

func accountKeyFrom(priv *ecdsa.PrivateKey) (*AccountKey, error) {
	if priv == nil {
		return nil, errNilKey
	}
	return &AccountKey{priv: priv}, nil
}

// PublicKey returns the 33-byte compressed public key.
func (k *AccountKey) PublicKey() []byte {
	return ethcrypto.CompressPubkey(&k.priv.PublicKey)
}

// Address is the account controlled by k. It hashes the compressed public
// key under its own domain tag, like AccountAddress and ContractAddress.
func (k *AccountKey) Address() Address {
	hash := ethcrypto.Keccak256([]byte("pubkey/"), k.PublicKey())
	return MustNewAddress(hash[len(hash)-AddressLength:])
}
