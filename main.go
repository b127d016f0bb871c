package main

import (
	"github.com/xkilldash9x/waflow/cmd"
)

func main() {
	// All command-line parsing, configuration, and execution is handled by
	// the cmd package.
	cmd.Execute()
}
