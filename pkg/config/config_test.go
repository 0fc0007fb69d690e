package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "accounts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const validConfig = `
venue:
  host: https://venue.example.com
accounts:
  - remark: acc1
    api_key: key-1
    eoa_address: "0x52908400098527886E0F7030069857D2E4169EE7"
  - remark: acc2
    api_key: key-2
`

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "https://venue.example.com", cfg.Venue.Host)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 5, cfg.Dispatch.MaxWorkers)
	assert.Equal(t, "127.0.0.1:8787", cfg.Server.Listen)
	require.Len(t, cfg.Accounts, 2)
	assert.Equal(t, "acc1", cfg.Accounts[0].Remark)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("GOTRADER_VENUE_HOST", "https://override.example.com")
	t.Setenv("GOTRADER_LOG_LEVEL", "debug")

	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)
	assert.Equal(t, "https://override.example.com", cfg.Venue.Host)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			"无账户",
			"venue:\n  host: https://x\n",
			"至少需要配置一个账户",
		},
		{
			"缺少 remark",
			"accounts:\n  - api_key: k\n",
			"缺少 remark",
		},
		{
			"缺少 api_key",
			"accounts:\n  - remark: acc1\n",
			"缺少 api_key",
		},
		{
			"地址非法",
			"accounts:\n  - remark: acc1\n    api_key: k\n    eoa_address: not-an-address\n",
			"eoa_address 非法",
		},
		{
			"代理地址非法",
			"accounts:\n  - remark: acc1\n    api_key: k\n    proxy_address: \"0x123\"\n",
			"proxy_address 非法",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadAccountsDir(t *testing.T) {
	dir := t.TempDir()
	// 按文件名排序追加
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte("remark: b-acc\napi_key: kb\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("remark: a-acc\napi_key: ka\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignore.txt"), []byte("x"), 0o600))

	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)
	require.NoError(t, cfg.LoadAccountsDir(dir))

	require.Len(t, cfg.Accounts, 4)
	assert.Equal(t, "a-acc", cfg.Accounts[2].Remark)
	assert.Equal(t, "b-acc", cfg.Accounts[3].Remark)
}

func TestResolveSecrets_NoRefsNoStore(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	// 没有 secretstore: 引用时，store 为 nil 也不报错
	require.NoError(t, cfg.ResolveSecrets(nil))
	assert.Equal(t, "key-1", cfg.Accounts[0].APIKey)
}

func TestResolveSecrets_RefWithoutStore(t *testing.T) {
	content := `
accounts:
  - remark: acc1
    api_key: "secretstore:acc1/api_key"
`
	cfg, err := Load(writeConfig(t, content))
	require.NoError(t, err)

	err = cfg.ResolveSecrets(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "未配置凭证存储")
}
