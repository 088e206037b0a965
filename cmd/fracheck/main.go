package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/ppiankov/fracheck/internal/cli"
)

func main() {
	// A missing .env is fine; FRACHECK_* may come from the real environment
	_ = godotenv.Load(".env")

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
