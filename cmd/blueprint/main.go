package main

import (
	"fmt"
	"os"

	"github.com/nyashahama/vitality-blueprint-backend/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "blueprint:", err)
		os.Exit(1)
	}
}
