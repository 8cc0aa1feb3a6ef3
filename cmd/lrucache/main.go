package main

import "github.com/3XBAT/lru/internal/cli"

func main() {
	cli.Execute()
}
