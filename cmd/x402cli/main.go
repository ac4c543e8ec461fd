package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Parse subcommand
	subcommand := os.Args[1]

	switch subcommand {
	case "check":
		checkCommand()
	case "pay":
		payCommand()
	case "supported":
		supportedCommand()
	case "discover":
		discoverCommand()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", subcommand)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "x402cli - CLI tool for interacting with payment-gated resources")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  x402cli <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  check      Check if a resource requires payment")
	fmt.Fprintln(os.Stderr, "  pay        Pay for a resource and print the response")
	fmt.Fprintln(os.Stderr, "  supported  List scheme/network pairs a facilitator handles")
	fmt.Fprintln(os.Stderr, "  discover   Browse a facilitator's discovery catalog")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Examples:")
	fmt.Fprintln(os.Stderr, "  x402cli check --resource http://localhost:3000/api/data")
	fmt.Fprintln(os.Stderr, "  X402_SECRET_KEY=S... x402cli pay --resource http://localhost:3000/api/data")
}
