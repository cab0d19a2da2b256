package main

import (
	"os"

	"github.com/csiro-hydroinformatics/efts-io/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
