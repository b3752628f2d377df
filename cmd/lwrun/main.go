package main

import (
	"os"

	"github.com/lwrproject/lwrun/cmd/lwrun/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
