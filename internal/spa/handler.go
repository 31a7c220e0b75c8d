package spa

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
)

// Handler はSPAを配信する http.Handler
// 保持するのは起動時に決まった設定だけで、リクエスト間で状態を共有しない
type Handler struct {
	root     string
	fallback string
}

// New は新しいHandlerを作成する
func New(root, fallback string) *Handler {
	return &Handler{
		root:     root,
		fallback: fallback,
	}
}

// ServeHTTP はリクエストを処理する
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	// ビルドのたびにディレクトリが作り直されても追従できるよう、毎回開く
	root, err := os.OpenRoot(h.root)
	if err != nil {
		if isNotFound(err) {
			http.NotFound(w, r)
			return
		}
		h.internalError(w, r, fmt.Errorf("ルートディレクトリを開けません: %w", err))
		return
	}
	defer root.Close()

	target, err := Resolve(root, r.URL.Path, h.fallback)
	if err != nil {
		switch {
		case errors.Is(err, ErrBadPath):
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		case errors.Is(err, ErrFallbackMissing):
			http.NotFound(w, r)
		default:
			h.internalError(w, r, err)
		}
		return
	}

	h.serve(w, r, root, target)
}

// serve は解決済みのファイルを書き込む
func (h *Handler) serve(w http.ResponseWriter, r *http.Request, root *os.Root, target Target) {
	f, err := root.Open(target.Name)
	if err != nil {
		// 解決後に削除された場合
		if isNotFound(err) {
			http.NotFound(w, r)
			return
		}
		h.internalError(w, r, fmt.Errorf("%s (%s) を開けません: %w", target.Name, target.Kind, err))
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		h.internalError(w, r, fmt.Errorf("%s (%s) の情報を取得できません: %w", target.Name, target.Kind, err))
		return
	}

	ctype := fallbackContentType
	if target.Kind != KindFallback {
		ctype, err = contentType(target.Name, f)
		if err != nil {
			h.internalError(w, r, fmt.Errorf("%s (%s): %w", target.Name, target.Kind, err))
			return
		}
	}
	w.Header().Set("Content-Type", ctype)

	// Content-Length、HEAD、Range、条件付きリクエストは ServeContent に任せる
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// internalError は 500 を返してエラーを記録する
func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	log.Printf("リクエストの処理に失敗しました: %s %s: %v", r.Method, r.URL.Path, err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
