package main

import (
	"log"

	"spaserve/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatalf("サーバーの起動に失敗しました: %v", err)
	}
}
