package main

import (
	"os"

	"github.com/bnema/short5-cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
