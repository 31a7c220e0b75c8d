// Package cmd はコマンドラインインターフェースを提供する
package cmd

import (
	"context"
	"io"
	"log"

	"github.com/spf13/cobra"

	"spaserve/internal/config"
	"spaserve/internal/server"
	"spaserve/internal/watch"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spaserve",
		Short: "ビルド済みSPAをフォールバック付きで配信する",
		Long: `ビルド済みのSPAを配信するプレビューサーバー。
存在しないパスへのリクエストには index.html を返すため、
クライアント側のルーティングがリロードや直接アクセスでも機能する。

環境変数 SERVER_HOST, PORT, SPA_ROOT, SPA_FALLBACK でも設定できる。`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := configFromFlags(cmd)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cmd.OutOrStdout(), cfg)
		},
	}

	f := cmd.Flags()
	f.String("host", config.DefaultHost, "サーバーのホスト")
	f.IntP("port", "p", config.DefaultPort, "サーバーのポート")
	f.StringP("dir", "d", config.DefaultRoot, "配信するディレクトリ")
	f.String("fallback", config.DefaultFallback, "未知のパスに返すフォールバック文書")
	f.BoolP("watch", "w", false, "フォールバック文書の有無を監視してログに出す")
	f.Duration("shutdown-timeout", config.DefaultShutdownTimeout, "グレースフルシャットダウンの猶予")

	return cmd
}

// configFromFlags は環境変数を読み込んだ設定にコマンドラインオプションを重ねて検証する
// 明示的に指定されたオプションだけが環境変数とデフォルト値を上書きする
func configFromFlags(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Load()
	flags := cmd.Flags()

	var err error
	if flags.Changed("host") {
		if cfg.Server.Host, err = flags.GetString("host"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("port") {
		if cfg.Server.Port, err = flags.GetInt("port"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("dir") {
		if cfg.Static.Root, err = flags.GetString("dir"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("fallback") {
		if cfg.Static.Fallback, err = flags.GetString("fallback"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("shutdown-timeout") {
		if cfg.Server.ShutdownTimeout, err = flags.GetDuration("shutdown-timeout"); err != nil {
			return nil, err
		}
	}
	if cfg.Watch, err = flags.GetBool("watch"); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// serve はサーバーを起動し、停止するまでブロックする
func serve(ctx context.Context, out io.Writer, cfg *config.Config) error {
	if cfg.Watch {
		w, err := watch.New(cfg.Static.Root, cfg.Static.Fallback)
		if err != nil {
			return err
		}
		defer w.Close()

		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go w.Run(watchCtx)
	}

	srv := server.New(cfg)
	srv.SetOutput(out)

	log.Printf("spaserve を起動します: %s (%s)", cfg.ServerAddress(), cfg.Static.Root)
	return srv.Start(ctx)
}

// Execute はルートコマンドを実行する
func Execute() error {
	return newRootCmd().ExecuteContext(context.Background())
}
