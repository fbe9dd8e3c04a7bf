// Package main is the entry point for the ParaBot face server.
// It only handles dependency injection and server initialization.
// NO business logic belongs here.
package main

import (
	"os"

	"github.com/MRamiBalles/ParaBot/cmd/parabot-server/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
