package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// デフォルト値
const (
	DefaultHost            = "0.0.0.0"
	DefaultPort            = 3020
	DefaultRoot            = "evonft-app/dist"
	DefaultFallback        = "index.html"
	DefaultShutdownTimeout = 5 * time.Second
)

// Config はアプリケーション全体の設定を保持する構造体
// 起動時に一度だけ組み立てられ、以降は変更しない
type Config struct {
	Server ServerConfig
	Static StaticConfig

	// Watch が有効な場合、ルートディレクトリを監視してフォールバック文書の有無をログに出す
	Watch bool
}

// ServerConfig はHTTPサーバーの設定
type ServerConfig struct {
	Host string `validate:"omitempty,hostname|ip"` // リッスンするホスト
	Port int    `validate:"min=1,max=65535"`       // リッスンするポート番号

	// タイムアウト設定
	ReadTimeout     time.Duration `validate:"gte=0"` // 読み込みタイムアウト
	WriteTimeout    time.Duration `validate:"gte=0"` // 書き込みタイムアウト
	ShutdownTimeout time.Duration `validate:"gt=0"`  // グレースフルシャットダウンの猶予
}

// StaticConfig は配信するSPAの設定
type StaticConfig struct {
	Root     string `validate:"required"` // 配信するルートディレクトリ
	Fallback string `validate:"required"` // フォールバック文書のファイル名
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Default はデフォルト値だけで組み立てた設定を返す
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            DefaultHost,
			Port:            DefaultPort,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    0, // 大きなアセットの転送を途中で切らない
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Static: StaticConfig{
			Root:     DefaultRoot,
			Fallback: DefaultFallback,
		},
	}
}

// Load は設定を読み込む
// デフォルト値に環境変数を上書きしたものを返す。検証は呼び出し側で行う
func Load() *Config {
	cfg := Default()

	cfg.Server.Host = getEnvOrDefault("SERVER_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvAsIntOrDefault("PORT", cfg.Server.Port)
	cfg.Static.Root = getEnvOrDefault("SPA_ROOT", cfg.Static.Root)
	cfg.Static.Fallback = getEnvOrDefault("SPA_FALLBACK", cfg.Static.Fallback)

	return cfg
}

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("設定の検証に失敗: %w", err)
	}

	// フォールバック文書はルート直下のファイル名に限る
	if c.Static.Fallback != filepath.Base(c.Static.Fallback) || c.Static.Fallback == "." || c.Static.Fallback == ".." {
		return fmt.Errorf("無効なフォールバック文書名: %q", c.Static.Fallback)
	}

	info, err := os.Stat(c.Static.Root)
	if err != nil {
		return fmt.Errorf("ルートディレクトリにアクセスできません: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("ルートディレクトリではありません: %s", c.Static.Root)
	}

	return nil
}

// ServerAddress はサーバーのリッスンアドレスを返す
func (c *Config) ServerAddress() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// URL はブラウザで開くためのURLを返す
// 全インターフェースで待ち受ける場合は localhost を表示する
func (c *Config) URL() string {
	host := c.Server.Host
	switch host {
	case "", "0.0.0.0", "::":
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(c.Server.Port))
}

// RootPath はルートディレクトリの絶対パスを返す
// 解決できない場合は設定値をそのまま返す
func (c *Config) RootPath() string {
	abs, err := filepath.Abs(c.Static.Root)
	if err != nil {
		return c.Static.Root
	}
	return abs
}

// getEnvOrDefault は環境変数を取得し、設定されていない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault は環境変数を整数として取得し、設定されていない場合はデフォルト値を返す
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
