package main

import (
	"os"

	"github.com/LumeraProtocol/arprov/cmd"
)

// Set via -ldflags at build time.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := cmd.Execute(Version, GitCommit, BuildTime); err != nil {
		os.Exit(1)
	}
}
