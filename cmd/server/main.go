package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opinionbot/gotrader/internal/journal"
	"github.com/opinionbot/gotrader/internal/opsserver"
	"github.com/opinionbot/gotrader/internal/trading"
	"github.com/opinionbot/gotrader/pkg/config"
	"github.com/opinionbot/gotrader/pkg/logger"
	"github.com/opinionbot/gotrader/pkg/sdk/api"
	"github.com/opinionbot/gotrader/pkg/secretstore"
	"github.com/opinionbot/gotrader/pkg/shutdown"
)

func main() {
	var (
		configPath = flag.String("config", "accounts.yaml", "配置文件路径")
		listen     = flag.String("listen", "", "监听地址（覆盖配置）")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal(err)
	}

	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		OutputFile: cfg.Log.File,
		MaxSize:    cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAgeDays,
		Compress:   true,
	}); err != nil {
		fatal(err)
	}

	sd := shutdown.NewManager()

	if cfg.SecretStore.Path != "" {
		key, err := secretstore.ParseKey(cfg.SecretStore.Key)
		if err != nil {
			fatal(err)
		}
		store, err := secretstore.Open(secretstore.OpenOptions{Path: cfg.SecretStore.Path, EncryptionKey: key, ReadOnly: true})
		if err != nil {
			fatal(err)
		}
		sd.OnShutdown(func(context.Context) { store.Close() })
		if err := cfg.ResolveSecrets(store); err != nil {
			fatal(err)
		}
	}

	accounts := make([]*trading.AccountContext, 0, len(cfg.Accounts))
	for _, acc := range cfg.Accounts {
		accounts = append(accounts, &trading.AccountContext{
			Config: acc,
			Client: api.NewClient(cfg.Venue.Host, acc.APIKey),
		})
	}

	var jn *journal.Journal
	if cfg.Journal.Path != "" {
		jn, err = journal.Open(cfg.Journal.Path)
		if err != nil {
			fatal(err)
		}
		sd.OnShutdown(func(context.Context) { jn.Close() })
	}

	addr := cfg.Server.Listen
	if *listen != "" {
		addr = *listen
	}

	srv := opsserver.New(accounts, jn)
	if err := srv.Start(addr); err != nil {
		fatal(err)
	}
	sd.OnShutdown(srv.Stop)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	logger.Infof("收到信号 %s，准备退出", s)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	sd.Shutdown(ctx)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err.Error())
	os.Exit(1)
}
