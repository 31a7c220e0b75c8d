// Package server は、SPAを配信するHTTPサーバーを管理します。
//
// このパッケージは、HTTPサーバーの起動、ミドルウェアの組み立て、
// シグナルを受けたグレースフルシャットダウンを担当します。
// 配信そのものは spa パッケージのハンドラに任せます。
//
// 責務:
//   - リッスンアドレスのバインドと起動メッセージの表示
//   - ginエンジンへのミドルウェア（リカバリ、リクエストID、アクセスログ）の登録
//   - ルートにマッチしないすべてのリクエストを spa.Handler に渡す
//   - SIGINT/SIGTERM またはコンテキストのキャンセルでの停止
//
// 仕様:
//   - ginを使用（リリースモード）
//   - バインドに失敗した場合は Start がすぐにエラーを返す
//   - リクエスト単位のエラーやパニックはそのリクエストの応答で完結する
package server
