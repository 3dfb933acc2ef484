package main

import (
	"os"

	"github.com/dshills/sizewatch/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
