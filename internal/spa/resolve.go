package spa

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
	"syscall"
)

// IndexName はディレクトリ要求で最初に探すファイル名
const IndexName = "index.html"

var (
	// ErrBadPath は解決できないURLパスを表す
	ErrBadPath = errors.New("不正なパス")

	// ErrFallbackMissing はフォールバック文書が存在しないことを表す
	ErrFallbackMissing = errors.New("フォールバック文書が見つかりません")
)

// Kind は解決結果の種類を表す
type Kind int

const (
	KindFile     Kind = iota // 要求パスそのもののファイル
	KindDirIndex             // 要求ディレクトリ内の index.html
	KindFallback             // フォールバック文書
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirIndex:
		return "dir-index"
	case KindFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// Target は要求パスを解決した結果
type Target struct {
	Name string // ルートからの相対パス（スラッシュ区切り）
	Kind Kind
}

// CleanPath はURLパスをルートからの相対パスに正規化する
// ".." は先頭より上に遡らない。ルート自体は "." になる
func CleanPath(urlPath string) (string, error) {
	if strings.IndexByte(urlPath, 0) >= 0 {
		return "", fmt.Errorf("%w: NULバイトを含みます", ErrBadPath)
	}

	name := strings.TrimPrefix(path.Clean("/"+urlPath), "/")
	if name == "" {
		return ".", nil
	}
	return name, nil
}

// Resolve は要求パスを配信対象に解決する
//
// 解決順:
//  1. 通常ファイルならそのファイル（末尾がスラッシュの要求はディレクトリ扱いのため除く）
//  2. ディレクトリで index.html を持つならその index.html
//  3. それ以外はフォールバック文書
//
// フォールバック文書もなければ ErrFallbackMissing を返す。
// 「存在しない」以外のファイルシステムエラーはそのまま返す
func Resolve(root *os.Root, urlPath, fallback string) (Target, error) {
	name, err := CleanPath(urlPath)
	if err != nil {
		return Target{}, err
	}

	// "/logo.png/" はディレクトリとしての要求なので、ファイルには解決しない
	wantDir := name != "." && strings.HasSuffix(urlPath, "/")

	info, err := root.Stat(name)
	switch {
	case err == nil && info.Mode().IsRegular() && !wantDir:
		return Target{Name: name, Kind: KindFile}, nil

	case err == nil && info.IsDir():
		index := path.Join(name, IndexName)
		indexInfo, err := root.Stat(index)
		if err == nil && indexInfo.Mode().IsRegular() {
			return Target{Name: index, Kind: KindDirIndex}, nil
		}
		if err != nil && !isNotFound(err) {
			return Target{}, fmt.Errorf("%s の確認に失敗: %w", index, err)
		}

	case err != nil && !isNotFound(err):
		return Target{}, fmt.Errorf("%s の確認に失敗: %w", name, err)
	}

	return resolveFallback(root, fallback)
}

// resolveFallback はフォールバック文書を解決する
func resolveFallback(root *os.Root, fallback string) (Target, error) {
	info, err := root.Stat(fallback)
	if err != nil {
		if isNotFound(err) {
			return Target{}, ErrFallbackMissing
		}
		return Target{}, fmt.Errorf("フォールバック文書の確認に失敗: %w", err)
	}
	if !info.Mode().IsRegular() {
		return Target{}, ErrFallbackMissing
	}

	return Target{Name: fallback, Kind: KindFallback}, nil
}

// isNotFound は「存在しない」と同等に扱うエラーかを判定する
// "/index.html/x" のようにファイルをディレクトリとして辿った場合も含む
func isNotFound(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}
