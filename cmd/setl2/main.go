package main

import (
	"os"

	"setl2/cmd/setl2/commands"
)

func main() {
	os.Exit(commands.Execute())
}
