package main

import (
	"os"

	"warden/cmd/wardenctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
