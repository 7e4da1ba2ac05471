// Command pidevmgrctl drives a DeviceMgr instance against the in-memory
// simulator for demonstration and ad-hoc testing.
package main

import (
	"github.com/p4lang/pi4go/cmd/pidevmgrctl/commands"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.Version = version
	commands.Commit = commit
	commands.Date = date

	if err := commands.Execute(); err != nil {
		commands.Exit("Error: %v", err)
	}
}
