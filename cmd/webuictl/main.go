package main

import (
	"os"

	"webuictl/internal/cli"
)

func main() {
	os.Exit(cli.Main())
}
