package server

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spaserve/internal/config"
)

const appShell = "<html>app</html>"

// newTestConfig はテスト用の設定とビルド出力ディレクトリを作成する
func newTestConfig(t *testing.T) *config.Config {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte(appShell), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "assets", "app.css"), []byte("body{}"), 0o644))

	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0 // ランダムポートを使用
	cfg.Server.ReadTimeout = 5 * time.Second
	cfg.Server.ShutdownTimeout = 2 * time.Second
	cfg.Static.Root = root

	return cfg
}

// TestServerStartAndShutdown はサーバーの起動とシャットダウンをテストする
func TestServerStartAndShutdown(t *testing.T) {
	cfg := newTestConfig(t)
	srv := New(cfg)

	var out bytes.Buffer
	srv.SetOutput(&out)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// サーバーを別ゴルーチンで起動
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	select {
	case <-srv.Ready():
	case err := <-errCh:
		t.Fatalf("サーバーの起動に失敗しました: %v", err)
	case <-time.After(3 * time.Second):
		t.Fatal("サーバーの起動がタイムアウトしました")
	}

	addr := srv.Addr()
	require.NotNil(t, addr)

	// コンテキストをキャンセルしてサーバーを停止
	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err, "サーバーの起動/停止でエラーが発生しました")
	case <-time.After(3 * time.Second):
		t.Fatal("サーバーの停止がタイムアウトしました")
	}

	// ポートが解放されていること
	ln, err := net.Listen("tcp", addr.String())
	require.NoError(t, err)
	_ = ln.Close()

	// 起動メッセージ
	port := addr.(*net.TCPAddr).Port
	assert.Contains(t, out.String(), fmt.Sprintf("http://127.0.0.1:%d", port))
	assert.Contains(t, out.String(), cfg.RootPath())
	assert.Contains(t, out.String(), "Press Ctrl+C to stop")
}

// TestServerEndpoints は実際のソケット越しにエンドポイントをテストする
func TestServerEndpoints(t *testing.T) {
	cfg := newTestConfig(t)
	srv := New(cfg)
	srv.SetOutput(io.Discard)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = srv.Start(ctx)
	}()

	select {
	case <-srv.Ready():
	case <-time.After(3 * time.Second):
		t.Fatal("サーバーの起動がタイムアウトしました")
	}

	baseURL := fmt.Sprintf("http://%s", srv.Addr())

	testCases := []struct {
		name           string
		endpoint       string
		expectedStatus int
		expectedBody   string
	}{
		{"ルートエンドポイント", "/", http.StatusOK, appShell},
		{"クライアントルート", "/marketplace", http.StatusOK, appShell},
		{"アセット", "/assets/app.css", http.StatusOK, "body{}"},
		{"ディレクトリトラバーサル", "/../../etc/passwd", http.StatusOK, appShell},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := http.Get(baseURL + tc.endpoint)
			require.NoError(t, err, "HTTPリクエストでエラーが発生しました")
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)

			assert.Equal(t, tc.expectedStatus, resp.StatusCode)
			assert.Equal(t, tc.expectedBody, string(body))
		})
	}

	// 不正なリクエスト行は 400 になり、サーバーは動き続ける
	t.Run("不正なリクエスト行", func(t *testing.T) {
		conn, err := net.Dial("tcp", srv.Addr().String())
		require.NoError(t, err)
		defer conn.Close()

		_, err = conn.Write([]byte("GARBAGE\r\n\r\n"))
		require.NoError(t, err)

		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		resp, err := io.ReadAll(conn)
		require.NoError(t, err)
		assert.Contains(t, string(resp), "400 Bad Request")

		again, err := http.Get(baseURL + "/")
		require.NoError(t, err)
		defer again.Body.Close()
		assert.Equal(t, http.StatusOK, again.StatusCode)
	})
}

// TestServerBindError は使用中のポートで起動できないことをテストする
func TestServerBindError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	cfg := newTestConfig(t)
	cfg.Server.Port = ln.Addr().(*net.TCPAddr).Port

	srv := New(cfg)
	srv.SetOutput(io.Discard)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(context.Background())
	}()

	select {
	case err := <-errCh:
		assert.Error(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("バインドエラーが返りませんでした")
	}
	assert.Nil(t, srv.Addr())
}

// TestHandlerMethods はメソッドごとの応答をテストする
func TestHandlerMethods(t *testing.T) {
	srv := New(newTestConfig(t))

	testCases := []struct {
		name   string
		method string
		status int
	}{
		{"GET", http.MethodGet, http.StatusOK},
		{"HEAD", http.MethodHead, http.StatusOK},
		{"POST", http.MethodPost, http.StatusMethodNotAllowed},
		{"DELETE", http.MethodDelete, http.StatusMethodNotAllowed},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(tc.method, "/about", nil))
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

// TestHandlerHeadThroughEngine は gin を通しても HEAD のヘッダーが保たれることをテストする
func TestHandlerHeadThroughEngine(t *testing.T) {
	srv := New(newTestConfig(t))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/about", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, fmt.Sprint(len(appShell)), rec.Header().Get("Content-Length"))
	assert.Empty(t, rec.Body.String())
}

// TestHandlerTrailingSlash は末尾スラッシュでリダイレクトしないことをテストする
func TestHandlerTrailingSlash(t *testing.T) {
	srv := New(newTestConfig(t))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/profile/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, appShell, rec.Body.String())
}

// TestHandlerFallbackMissing はフォールバック文書がない場合に 404 になることをテストする
func TestHandlerFallbackMissing(t *testing.T) {
	cfg := newTestConfig(t)
	require.NoError(t, os.Remove(filepath.Join(cfg.Static.Root, "index.html")))
	srv := New(cfg)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nonexistent", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// TestRequestID はリクエストIDの付与と引き継ぎをテストする
func TestRequestID(t *testing.T) {
	srv := New(newTestConfig(t))

	t.Run("新規発行", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		_, err := uuid.Parse(rec.Header().Get(RequestIDHeader))
		assert.NoError(t, err)
	})

	t.Run("引き継ぎ", func(t *testing.T) {
		id := uuid.NewString()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, id)

		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		assert.Equal(t, id, rec.Header().Get(RequestIDHeader))
	})

	t.Run("不正なIDは置き換える", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "<script>")

		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		got := rec.Header().Get(RequestIDHeader)
		assert.NotEqual(t, "<script>", got)
		_, err := uuid.Parse(got)
		assert.NoError(t, err)
	})
}
