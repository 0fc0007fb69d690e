package secretstore

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
)

// Store 账户凭证存储（Badger KV，加密由 Badger 的 value log + key registry 提供）。
// 配置文件里用 "secretstore:<key>" 引用其中的条目，避免明文私钥落盘。
type Store struct {
	db *badger.DB
}

// OpenOptions 打开参数
type OpenOptions struct {
	Path          string
	EncryptionKey []byte // 32 字节；为空时不加密（不推荐）
	ReadOnly      bool
}

// Open 打开凭证存储
func Open(opts OpenOptions) (*Store, error) {
	if strings.TrimSpace(opts.Path) == "" {
		return nil, errors.New("secretstore: path is required")
	}
	bopts := badger.DefaultOptions(opts.Path).
		WithLogger(nil).
		WithReadOnly(opts.ReadOnly)
	if len(opts.EncryptionKey) > 0 {
		// 加密模式下 Badger 要求配置 index cache
		bopts = bopts.
			WithEncryptionKey(opts.EncryptionKey).
			WithIndexCacheSize(100 << 20) // 100MB
	}
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, errors.Wrap(err, "secretstore: open")
	}
	return &Store{db: db}, nil
}

// Close 关闭存储
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// CredentialKey 约定的账户凭证键名，例如 CredentialKey("acc1", "api_key") -> "acc1/api_key"
func CredentialKey(remark, field string) string {
	return remark + "/" + field
}

// GetString 读取字符串值；不存在时 found 为 false，不是错误
func (s *Store) GetString(key string) (val string, found bool, err error) {
	if s == nil || s.db == nil {
		return "", false, errors.New("secretstore: not opened")
	}
	k := []byte(strings.TrimSpace(key))
	if len(k) == 0 {
		return "", false, errors.New("secretstore: key is empty")
	}

	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(k)
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		found = true
		return item.Value(func(v []byte) error {
			val = string(v)
			return nil
		})
	})
	if err != nil {
		return "", false, err
	}
	return val, found, nil
}

// SetString 写入字符串值
func (s *Store) SetString(key, val string) error {
	if s == nil || s.db == nil {
		return errors.New("secretstore: not opened")
	}
	k := []byte(strings.TrimSpace(key))
	if len(k) == 0 {
		return errors.New("secretstore: key is empty")
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(k, []byte(val))
	})
}

// ParseKey 解析 32 字节加密密钥（hex 或 base64）；空输入返回 nil
func ParseKey(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	rawHex := strings.TrimPrefix(raw, "0x")
	if b, err := hex.DecodeString(rawHex); err == nil {
		if len(b) == 32 {
			return b, nil
		}
		return nil, fmt.Errorf("secretstore: decoded key length must be 32, got %d", len(b))
	}

	if b, err := base64.StdEncoding.DecodeString(raw); err == nil {
		if len(b) != 32 {
			return nil, fmt.Errorf("secretstore: decoded key length must be 32, got %d", len(b))
		}
		return b, nil
	}

	return nil, errors.New("secretstore: key must be base64(32 bytes) or hex(32 bytes)")
}
