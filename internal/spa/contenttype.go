package spa

import (
	"fmt"
	"io"
	"mime"
	"path"

	"github.com/gabriel-vasile/mimetype"
)

// fallbackContentType はフォールバック文書に付ける Content-Type
const fallbackContentType = "text/html; charset=utf-8"

// contentType はファイルの Content-Type を決める
// 拡張子で判定できなければ先頭バイトから推定し、読み取り位置を先頭に戻す
func contentType(name string, content io.ReadSeeker) (string, error) {
	if ctype := mime.TypeByExtension(path.Ext(name)); ctype != "" {
		return ctype, nil
	}

	mtype, err := mimetype.DetectReader(content)
	if err != nil {
		return "", fmt.Errorf("Content-Type の推定に失敗: %w", err)
	}
	if _, err := content.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("読み取り位置の復元に失敗: %w", err)
	}

	return mtype.String(), nil
}
