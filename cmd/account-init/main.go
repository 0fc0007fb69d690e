package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/opinionbot/gotrader/pkg/secretstore"
	"github.com/opinionbot/gotrader/pkg/wallet"
)

// account-init 从 BIP-39 助记词派生账户私钥，连同 API key 一起写入
// 加密凭证存储。配置文件里随后用 secretstore: 引用这些凭证，
// 避免明文落盘。
func main() {
	var (
		storePath = flag.String("store", "secrets", "凭证存储目录")
		remark    = flag.String("remark", "", "账户备注（作为凭证键前缀）")
		path      = flag.String("path", wallet.DefaultDerivationPath, "派生路径")
		index     = flag.Int("index", -1, "账户序号（>=0 时覆盖 -path）")
		apiKey    = flag.String("api-key", "", "交易所 API key（为空则从 stdin 读取）")
	)
	flag.Parse()

	if *remark == "" {
		fatal(fmt.Errorf("-remark 必填"))
	}

	keyHex := os.Getenv("GOTRADER_SECRET_KEY")
	if keyHex == "" {
		fatal(fmt.Errorf("请通过环境变量 GOTRADER_SECRET_KEY 提供 32 字节存储密钥"))
	}
	key, err := secretstore.ParseKey(keyHex)
	if err != nil {
		fatal(err)
	}

	mnemonic := os.Getenv("GOTRADER_MNEMONIC")
	if mnemonic == "" {
		mnemonic = readLine("请输入助记词: ")
	}

	derivationPath := *path
	if *index >= 0 {
		derivationPath = wallet.DerivationPathForIndex(*index)
	}

	derived, err := wallet.DeriveFromMnemonic(mnemonic, derivationPath)
	if err != nil {
		fatal(err)
	}

	ak := *apiKey
	if ak == "" {
		ak = readLine("请输入 API key（留空跳过）: ")
	}

	store, err := secretstore.Open(secretstore.OpenOptions{Path: *storePath, EncryptionKey: key})
	if err != nil {
		fatal(err)
	}
	defer store.Close()

	if err := store.SetString(secretstore.CredentialKey(*remark, "private_key"), derived.PrivateKeyHex); err != nil {
		fatal(err)
	}
	if ak != "" {
		if err := store.SetString(secretstore.CredentialKey(*remark, "api_key"), ak); err != nil {
			fatal(err)
		}
	}

	fmt.Printf("账户 [%s] 已写入凭证存储\n", *remark)
	fmt.Printf("  EOA 地址: %s\n", derived.EOAAddress)
	fmt.Printf("  派生路径: %s\n", derivationPath)
	fmt.Println("配置文件中引用:")
	fmt.Printf("  private_key: \"secretstore:%s\"\n", secretstore.CredentialKey(*remark, "private_key"))
	if ak != "" {
		fmt.Printf("  api_key: \"secretstore:%s\"\n", secretstore.CredentialKey(*remark, "api_key"))
	}
}

func readLine(prompt string) string {
	fmt.Fprint(os.Stderr, prompt)
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	return strings.TrimSpace(line)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err.Error())
	os.Exit(1)
}
