// Package spa は、ビルド済みのSPA（Single Page Application）を配信します。
//
// 要求パスをルートディレクトリ配下のファイルに解決し、
// 該当するファイルがなければフォールバック文書（通常は index.html）を返します。
// クライアント側のルーティングが、リロードや直接アクセスでも機能するようにするためです。
//
// 責務:
//   - URLパスの正規化とルートディレクトリ配下への解決
//   - ファイル・ディレクトリ内 index.html・フォールバック文書の選択
//   - Content-Type の決定とレスポンスの書き込み
//
// 仕様:
//   - GET と HEAD のみ受け付け、それ以外は 405 を返す
//   - ファイル読み込みはすべて os.Root 経由で行い、ルート外には出ない
//   - キャッシュを持たず、毎回その時点のファイルシステムから応答を決める
//   - フォールバック文書がなければ 404 を返す
package spa
