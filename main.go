package main

import (
	"os"

	"github.com/itsJ0ker/midnight/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
