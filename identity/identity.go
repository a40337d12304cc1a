package identity

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"txsentinel-tui/config"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrNoWallet       = errors.New("identity: no active wallet configured")
	ErrInvalidAddress = errors.New("identity: invalid wallet address")
	ErrInvalidKey     = errors.New("identity: invalid private key")
)

// Signer is the identity a session is opened for
type Signer struct {
	Address common.Address
	// Key is nil for watch-only identities
	Key *ecdsa.PrivateKey
}

// Provider yields the active signing identity
type Provider interface {
	Signer(ctx context.Context) (Signer, error)
}

// ConfigProvider uses the wallet marked active in the config.
// It is watch-only: TxSentinel only needs the address to track.
type ConfigProvider struct {
	Wallets func() []config.WalletEntry
}

func (p ConfigProvider) Signer(ctx context.Context) (Signer, error) {
	if p.Wallets == nil {
		return Signer{}, ErrNoWallet
	}
	for _, w := range p.Wallets() {
		if !w.Active {
			continue
		}
		if !common.IsHexAddress(w.Address) {
			return Signer{}, fmt.Errorf("%w: %q", ErrInvalidAddress, w.Address)
		}
		return Signer{Address: common.HexToAddress(w.Address)}, nil
	}
	return Signer{}, ErrNoWallet
}

// KeyProvider derives the identity from a hex encoded secp256k1 key
type KeyProvider struct {
	HexKey string
}

func (p KeyProvider) Signer(ctx context.Context) (Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(p.HexKey), "0x"))
	if err != nil {
		return Signer{}, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return Signer{Address: crypto.PubkeyToAddress(key.PublicKey), Key: key}, nil
}

// FromConfig picks a KeyProvider when a private key is configured, otherwise
// the active config wallet
func FromConfig(privateKey string, wallets func() []config.WalletEntry) Provider {
	if strings.TrimSpace(privateKey) != "" {
		return KeyProvider{HexKey: privateKey}
	}
	return ConfigProvider{Wallets: wallets}
}
