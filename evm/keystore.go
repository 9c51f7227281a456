package evm

import (
	"crypto/ecdsa"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"
	"github.com/x402dev/x402-go"
)

// WithKeystore loads the signing key from encrypted keystore JSON
// (the geth / web3 secret storage format).
func WithKeystore(keyJSON []byte, password string) SignerOption {
	return func(s *Signer) error {
		key, err := keystore.DecryptKey(keyJSON, password)
		if err != nil {
			return fmt.Errorf("%w: %v", x402.ErrInvalidKeystore, err)
		}
		s.privateKey = key.PrivateKey
		return nil
	}
}

// WithKeystoreFile loads the signing key from an encrypted keystore file.
func WithKeystoreFile(path, password string) SignerOption {
	return func(s *Signer) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("%w: %v", x402.ErrInvalidKeystore, err)
		}
		return WithKeystore(data, password)(s)
	}
}

// WithMnemonic derives the signing key from a BIP-39 mnemonic phrase
// using the standard Ethereum path m/44'/60'/0'/0/{index}. The password
// is the optional BIP-39 passphrase, usually empty.
func WithMnemonic(mnemonic, password string, index uint32) SignerOption {
	return func(s *Signer) error {
		if !bip39.IsMnemonicValid(mnemonic) {
			return x402.ErrInvalidMnemonic
		}

		seed := bip39.NewSeed(mnemonic, password)
		key, err := deriveEthereumKey(seed, index)
		if err != nil {
			return fmt.Errorf("%w: %v", x402.ErrInvalidMnemonic, err)
		}
		s.privateKey = key
		return nil
	}
}

// deriveEthereumKey walks the BIP-44 path m/44'/60'/0'/0/{index}.
func deriveEthereumKey(seed []byte, index uint32) (*ecdsa.PrivateKey, error) {
	masterKey, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, err
	}

	path := []uint32{
		bip32.FirstHardenedChild + 44, // purpose
		bip32.FirstHardenedChild + 60, // coin type: ether
		bip32.FirstHardenedChild + 0,  // account
		0,                             // external chain
		index,
	}

	key := masterKey
	for _, segment := range path {
		key, err = key.NewChildKey(segment)
		if err != nil {
			return nil, err
		}
	}

	return crypto.ToECDSA(key.Key)
}
