// Package main provides the entry point for the sitesmith CLI.
package main

import (
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// Missing .env is fine; API keys can come from the environment.
	_ = godotenv.Load()

	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
