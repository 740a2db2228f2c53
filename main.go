package main

import (
	"os"

	"github.com/planjudge/planjudge/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
