package main

import (
	"os"

	"github.com/sheetbridge/sheetbridge/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
