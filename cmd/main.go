package main

import (
	"os"

	cli "github.com/noesis-kb/noesis/cmd/noesis"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
