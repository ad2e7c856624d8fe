package main

import (
	"os"

	"github.com/asarsync/asarsync/client/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
