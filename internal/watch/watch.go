// Package watch はルートディレクトリを監視し、フォールバック文書の有無の変化をログに出す
//
// 配信内容には一切関与しない。ビルドの途中で index.html が消えている間、
// 未知のパスが 404 になることを開発者に知らせるためのもの
package watch

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher はフォールバック文書の有無を監視する
type Watcher struct {
	root     string
	fallback string
	fsw      *fsnotify.Watcher

	// present は最後に確認したフォールバック文書の有無
	// Run を実行するゴルーチンだけが更新する
	present bool

	// OnChange はフォールバック文書の有無が変わったときに呼ばれる
	OnChange func(present bool)
}

// New は新しいWatcherを作成する
// ルートディレクトリの作り直しを検出するため、親ディレクトリも監視する
func New(root, fallback string) (*Watcher, error) {
	root = filepath.Clean(root)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("ファイル監視の作成に失敗: %w", err)
	}
	if err := fsw.Add(root); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("%s の監視に失敗: %w", root, err)
	}
	if err := fsw.Add(filepath.Dir(root)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("%s の監視に失敗: %w", filepath.Dir(root), err)
	}

	w := &Watcher{
		root:     root,
		fallback: fallback,
		fsw:      fsw,
	}
	// 監視を登録した時点の状態を基準にする。以降の変化はイベントで拾う
	w.present = w.fallbackPresent()

	return w, nil
}

// Run はコンテキストがキャンセルされるか監視が閉じられるまでイベントを処理する
func (w *Watcher) Run(ctx context.Context) {
	if !w.present {
		log.Printf("フォールバック文書がありません: %s（未知のパスは 404 になります）", w.fallbackPath())
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			switch filepath.Clean(event.Name) {
			case w.root:
				w.handleRootEvent(event)
			case w.fallbackPath():
				w.update()
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("ファイル監視でエラーが発生しました: %v", err)
		}
	}
}

// Close は監視を終了する
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// handleRootEvent はルートディレクトリ自体の削除・再作成を処理する
func (w *Watcher) handleRootEvent(event fsnotify.Event) {
	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		log.Printf("ルートディレクトリが削除されました: %s（再作成を待ちます）", w.root)
		w.update()

	case event.Has(fsnotify.Create):
		// 削除とともに監視は外れているので登録し直す
		if err := w.fsw.Add(w.root); err != nil {
			log.Printf("%s の監視を再開できません: %v", w.root, err)
			return
		}
		log.Printf("ルートディレクトリが再作成されました: %s", w.root)
		// 監視を登録するまでに置かれたフォールバック文書はイベントが来ないため確認し直す
		w.update()
	}
}

// update はフォールバック文書の有無を確認し、変化していれば通知する
func (w *Watcher) update() {
	now := w.fallbackPresent()
	if now == w.present {
		return
	}
	w.present = now

	if now {
		log.Printf("フォールバック文書が配置されました: %s", w.fallbackPath())
	} else {
		log.Printf("フォールバック文書が削除されました: %s（未知のパスは 404 になります）", w.fallbackPath())
	}
	if w.OnChange != nil {
		w.OnChange(now)
	}
}

func (w *Watcher) fallbackPath() string {
	return filepath.Join(w.root, w.fallback)
}

// fallbackPresent はフォールバック文書が通常ファイルとして存在するかを返す
func (w *Watcher) fallbackPresent() bool {
	info, err := os.Stat(w.fallbackPath())
	return err == nil && info.Mode().IsRegular()
}
