package main

import (
	"os"

	"github.com/fahmaliyi/pmgr/cli"
)

var version = "dev"

func main() {
	os.Exit(cli.Execute(version))
}
