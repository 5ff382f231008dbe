package main

import (
	"os"
)

var (
	Version   = "1.0.0"
	BuildTime = "unknown"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
