package main

import (
	"os"

	"cloudsnap/src/cli"
)

func main() {
	os.Exit(cli.Execute())
}
