package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/opinionbot/gotrader/pkg/secretstore"
)

// secretRefPrefix 凭证字段的 secretstore 间接引用前缀，
// 例如 api_key: "secretstore:acc1/api_key"
const secretRefPrefix = "secretstore:"

// AccountConfig 单个账户的静态配置。启动时加载一次，运行期间只读。
type AccountConfig struct {
	Remark       string `yaml:"remark"`        // 备注，用于进度显示和错误汇总
	APIKey       string `yaml:"api_key"`       // 交易所 API key（支持 secretstore: 引用）
	EOAAddress   string `yaml:"eoa_address"`   // 注册地址，用于查询链上余额
	PrivateKey   string `yaml:"private_key"`   // 私钥（支持 secretstore: 引用）
	ProxyAddress string `yaml:"proxy_address"` // 交易代理地址（可选）
}

// VenueConfig 交易所接入配置
type VenueConfig struct {
	Host string `yaml:"host"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// DispatchConfig 批量调度配置
type DispatchConfig struct {
	MaxWorkers int `yaml:"max_workers"` // 并行模式协程数
	MaxRetries int `yaml:"max_retries"` // 下单重试次数
}

// ChainConfig 链上余额查询配置
type ChainConfig struct {
	RPCURL             string `yaml:"rpc_url"`             // EVM 节点 RPC 地址
	CollateralToken    string `yaml:"collateral_token"`    // 抵押代币（USDT）合约地址
	CollateralDecimals int    `yaml:"collateral_decimals"` // 代币精度，默认 6
}

// JournalConfig 批次日志（sqlite）配置
type JournalConfig struct {
	Path string `yaml:"path"` // 为空则不落库
}

// ServerConfig 运维接口配置
type ServerConfig struct {
	Listen string `yaml:"listen"`
}

// SecretStoreConfig 凭证存储配置
type SecretStoreConfig struct {
	Path string `yaml:"path"`
	// Key 32 字节（hex 或 base64）；也可通过环境变量 GOTRADER_SECRET_KEY 提供
	Key string `yaml:"key"`
}

// Config 应用配置
type Config struct {
	Venue       VenueConfig       `yaml:"venue"`
	Chain       ChainConfig       `yaml:"chain"`
	Log         LogConfig         `yaml:"log"`
	Dispatch    DispatchConfig    `yaml:"dispatch"`
	Journal     JournalConfig     `yaml:"journal"`
	Server      ServerConfig      `yaml:"server"`
	SecretStore SecretStoreConfig `yaml:"secret_store"`
	Accounts    []*AccountConfig  `yaml:"accounts"`
}

// applyDefaults 填充缺省值
func (c *Config) applyDefaults() {
	if c.Venue.Host == "" {
		c.Venue.Host = "https://api.opinion.trade"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 100
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = 3
	}
	if c.Log.MaxAgeDays == 0 {
		c.Log.MaxAgeDays = 7
	}
	if c.Dispatch.MaxWorkers <= 0 {
		c.Dispatch.MaxWorkers = 5
	}
	if c.Dispatch.MaxRetries < 0 {
		c.Dispatch.MaxRetries = 0
	}
	if c.Server.Listen == "" {
		c.Server.Listen = "127.0.0.1:8787"
	}
	if c.Chain.CollateralDecimals <= 0 {
		c.Chain.CollateralDecimals = 6
	}
}

// applyEnv 环境变量覆盖（优先级高于配置文件）
func (c *Config) applyEnv() {
	if v := os.Getenv("GOTRADER_VENUE_HOST"); v != "" {
		c.Venue.Host = v
	}
	if v := os.Getenv("GOTRADER_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("GOTRADER_SECRET_KEY"); v != "" {
		c.SecretStore.Key = v
	}
}

// Validate 校验配置；地址字段必须是合法的十六进制地址
func (c *Config) Validate() error {
	if len(c.Accounts) == 0 {
		return errors.New("config: 至少需要配置一个账户")
	}
	if c.Chain.CollateralToken != "" && !common.IsHexAddress(c.Chain.CollateralToken) {
		return errors.Errorf("config: collateral_token 非法: %s", c.Chain.CollateralToken)
	}
	for i, acc := range c.Accounts {
		if acc.Remark == "" {
			return errors.Errorf("config: 账户 #%d 缺少 remark", i+1)
		}
		if acc.APIKey == "" {
			return errors.Errorf("config: 账户 [%s] 缺少 api_key", acc.Remark)
		}
		if acc.EOAAddress != "" && !common.IsHexAddress(acc.EOAAddress) {
			return errors.Errorf("config: 账户 [%s] eoa_address 非法: %s", acc.Remark, acc.EOAAddress)
		}
		if acc.ProxyAddress != "" && !common.IsHexAddress(acc.ProxyAddress) {
			return errors.Errorf("config: 账户 [%s] proxy_address 非法: %s", acc.Remark, acc.ProxyAddress)
		}
	}
	return nil
}

// Load 加载配置文件（YAML）。
// 先加载 .env（存在时），再解析文件、应用环境变量覆盖和缺省值。
// 凭证的 secretstore: 引用此时尚未解析，见 ResolveSecrets。
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "config: 读取配置文件失败")
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "config: 解析配置文件失败")
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadAccountsDir 从目录加载额外账户（每个 *.yaml 一个账户），
// 按文件名排序后追加到 Accounts。
func (c *Config) LoadAccountsDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.Wrap(err, "config: 读取账户目录失败")
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ext := filepath.Ext(e.Name()); ext == ".yaml" || ext == ".yml" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return errors.Wrapf(err, "config: 读取账户文件 %s 失败", name)
		}
		acc := &AccountConfig{}
		if err := yaml.Unmarshal(data, acc); err != nil {
			return errors.Wrapf(err, "config: 解析账户文件 %s 失败", name)
		}
		c.Accounts = append(c.Accounts, acc)
	}
	return nil
}

// ResolveSecrets 解析账户凭证里的 secretstore: 引用。
// store 为 nil 且存在引用时报错。
func (c *Config) ResolveSecrets(store *secretstore.Store) error {
	for _, acc := range c.Accounts {
		var err error
		if acc.APIKey, err = resolveSecret(store, acc.Remark, acc.APIKey); err != nil {
			return err
		}
		if acc.PrivateKey, err = resolveSecret(store, acc.Remark, acc.PrivateKey); err != nil {
			return err
		}
	}
	return nil
}

func resolveSecret(store *secretstore.Store, remark, raw string) (string, error) {
	if !strings.HasPrefix(raw, secretRefPrefix) {
		return raw, nil
	}
	key := strings.TrimPrefix(raw, secretRefPrefix)
	if store == nil {
		return "", errors.Errorf("config: 账户 [%s] 引用了 secretstore 但未配置凭证存储", remark)
	}
	val, found, err := store.GetString(key)
	if err != nil {
		return "", errors.Wrapf(err, "config: 账户 [%s] 读取凭证 %s 失败", remark, key)
	}
	if !found {
		return "", errors.Errorf("config: 账户 [%s] 凭证 %s 不存在", remark, key)
	}
	return val, nil
}
