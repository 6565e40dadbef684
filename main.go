package main

import (
	"os"

	"github.com/keyo-app/pulse-toast/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
