// dbchat is a terminal client for a natural-language database assistant.
//
// The cobra root opens the TUI; `dbchat chat` is the plain REPL.
package main

import (
	"os"

	"github.com/DachengChen/dbchat/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
