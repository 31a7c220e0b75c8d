package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/fatih/color"
	"github.com/gin-gonic/gin"

	"spaserve/internal/config"
	"spaserve/internal/spa"
)

// Server はHTTPサーバーを管理する構造体
type Server struct {
	config     *config.Config
	engine     *gin.Engine
	httpServer *http.Server
	out        io.Writer

	mu    sync.Mutex
	addr  net.Addr
	ready chan struct{}
}

// New は新しいServerインスタンスを作成する
func New(cfg *config.Config) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	s := &Server{
		config: cfg,
		engine: engine,
		out:    os.Stdout,
		ready:  make(chan struct{}),
		httpServer: &http.Server{
			Handler:      engine,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}
	s.setupRoutes()

	return s
}

// setupRoutes はミドルウェアとフォールバックハンドラを登録する
func (s *Server) setupRoutes() {
	// SPAのパスをginに書き換えさせない
	s.engine.RedirectTrailingSlash = false
	s.engine.RedirectFixedPath = false

	s.engine.Use(gin.Recovery(), requestID(), accessLog())

	// 明示的なルートは持たず、すべてのリクエストをSPAハンドラで処理する
	handler := spa.New(s.config.Static.Root, s.config.Static.Fallback)
	s.engine.NoRoute(gin.WrapH(handler))
}

// Handler はミドルウェア込みのHTTPハンドラを返す
func (s *Server) Handler() http.Handler {
	return s.engine
}

// SetOutput は起動メッセージの出力先を変更する
func (s *Server) SetOutput(w io.Writer) {
	s.out = w
}

// Ready はリッスンを開始したときに閉じられるチャンネルを返す
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr は実際にリッスンしているアドレスを返す
// 起動前は nil
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Start はサーバーを起動する
// コンテキストのキャンセルかシグナルを受けるまでブロックする
func (s *Server) Start(ctx context.Context) error {
	// バインドの失敗は起動時にそのまま返す
	ln, err := net.Listen("tcp", s.config.ServerAddress())
	if err != nil {
		return fmt.Errorf("%s をリッスンできません: %w", s.config.ServerAddress(), err)
	}

	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()

	log.Printf("HTTPサーバーを起動しています: %s", ln.Addr())
	s.printBanner(ln.Addr())

	// シャットダウン用のチャンネル
	shutdownCh := make(chan error, 1)

	// サーバーを別ゴルーチンで起動
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			shutdownCh <- fmt.Errorf("サーバーの実行に失敗: %w", err)
		}
	}()
	close(s.ready)

	// シグナルハンドリング
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	// コンテキストかシグナルを待つ
	select {
	case <-ctx.Done():
		log.Println("コンテキストがキャンセルされました")
	case sig := <-sigCh:
		log.Printf("シグナルを受信しました: %v", sig)
	case err := <-shutdownCh:
		return err
	}

	// グレースフルシャットダウン
	return s.Shutdown()
}

// Shutdown はサーバーをグレースフルにシャットダウンする
func (s *Server) Shutdown() error {
	log.Println("サーバーをシャットダウンしています...")

	timeout := s.config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = config.DefaultShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("サーバーのシャットダウンに失敗: %w", err)
	}

	log.Println("サーバーが正常にシャットダウンされました")
	return nil
}

// printBanner は配信URLとディレクトリを表示する
func (s *Server) printBanner(addr net.Addr) {
	display := *s.config
	if tcp, ok := addr.(*net.TCPAddr); ok {
		display.Server.Port = tcp.Port
	}

	fmt.Fprintf(s.out, "Serving SPA at %s\n", color.New(color.FgGreen, color.Bold).Sprint(display.URL()))
	fmt.Fprintf(s.out, "Directory: %s\n", color.New(color.FgCyan).Sprint(display.RootPath()))
	fmt.Fprintln(s.out, "Press Ctrl+C to stop")
}
