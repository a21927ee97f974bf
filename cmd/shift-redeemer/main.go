package main

import (
	"shift-redeemer/cmd/shift-redeemer/commands"
	"shift-redeemer/internal/osutil"
)

func main() {
	commands.ExecuteContext(osutil.SignalContext())
}
