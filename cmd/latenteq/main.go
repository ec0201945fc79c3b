// Package main provides the entry point for the latenteq CLI.
//
// latenteq demonstrates, end to end, that a linear mixed model and a
// constrained latent-variable model are the same fit: it simulates panel
// data from a known generative model, estimates it both ways, and compares
// every variance component and every per-unit prediction.
//
// Usage:
//
//	latenteq run --scenario random-intercept
//	latenteq replicate --replications 20
//	latenteq serve --addr :8080
//
// See --help for all available options.
package main

import "github.com/joho/godotenv"

// main is the entry point for latenteq.
func main() {
	// Environment overrides may live in a .env file in the working directory.
	_ = godotenv.Load()
	Execute()
}
