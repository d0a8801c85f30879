// Package main 客服会话命令行客户端
package main

import (
	"fmt"
	"os"

	"support_chat_server/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
