package main

import (
	// Load provider credentials from a local .env when present.
	_ "github.com/joho/godotenv/autoload"
)

func main() {
	Execute()
}
