package wallet

import (
	"fmt"
	"strings"

	hdwallet "github.com/miguelmota/go-ethereum-hdwallet"
)

// DefaultDerivationPath 标准以太坊派生路径（账户 0）
const DefaultDerivationPath = "m/44'/60'/0'/0/0"

// Derived 从助记词派生出的账户密钥
type Derived struct {
	PrivateKeyHex string
	EOAAddress    string
}

// DeriveFromMnemonic 按派生路径从 BIP-39 助记词派生私钥和 EOA 地址
func DeriveFromMnemonic(mnemonic, derivationPath string) (*Derived, error) {
	mnemonic = strings.TrimSpace(mnemonic)
	derivationPath = strings.TrimSpace(derivationPath)
	if mnemonic == "" {
		return nil, fmt.Errorf("mnemonic is required")
	}
	if derivationPath == "" {
		derivationPath = DefaultDerivationPath
	}

	w, err := hdwallet.NewFromMnemonic(mnemonic)
	if err != nil {
		return nil, fmt.Errorf("invalid mnemonic: %w", err)
	}

	path, err := hdwallet.ParseDerivationPath(derivationPath)
	if err != nil {
		return nil, fmt.Errorf("invalid derivation path: %w", err)
	}

	acct, err := w.Derive(path, false)
	if err != nil {
		return nil, fmt.Errorf("derive failed: %w", err)
	}

	pk, err := w.PrivateKeyHex(acct)
	if err != nil {
		return nil, fmt.Errorf("private key failed: %w", err)
	}

	return &Derived{
		PrivateKeyHex: pk,
		EOAAddress:    strings.ToLower(acct.Address.Hex()),
	}, nil
}

// DerivationPathForIndex 第 index 个账户的标准派生路径
func DerivationPathForIndex(index int) string {
	return fmt.Sprintf("m/44'/60'/0'/0/%d", index)
}
