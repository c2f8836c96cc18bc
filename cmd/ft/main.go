// Package main is the entry point for the fieldtrack CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/evcraddock/fieldtrack/internal/cli"
)

func main() {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
