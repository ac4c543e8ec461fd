package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/vorpalengineering/x402-stellar/facilitator/client"
)

func supportedCommand() {
	supportedFlags := flag.NewFlagSet("supported", flag.ExitOnError)
	var facilitatorURL string
	supportedFlags.StringVar(&facilitatorURL, "facilitator", "", "Base URL of the facilitator (required)")
	supportedFlags.StringVar(&facilitatorURL, "f", "", "Base URL of the facilitator (required)")

	supportedFlags.Parse(os.Args[2:])

	if facilitatorURL == "" {
		fmt.Fprintln(os.Stderr, "Error: --facilitator or -f flag is required")
		supportedFlags.PrintDefaults()
		os.Exit(1)
	}

	fc := client.NewFacilitatorClient(facilitatorURL)
	resp, err := fc.Supported(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	jsonBytes, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting response: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(jsonBytes))
}
