package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/vorpalengineering/x402-stellar/facilitator/client"
)

func discoverCommand() {
	discoverFlags := flag.NewFlagSet("discover", flag.ExitOnError)
	var facilitatorURL, resourceType string
	var limit, offset int
	discoverFlags.StringVar(&facilitatorURL, "facilitator", "", "Base URL of the facilitator (required)")
	discoverFlags.StringVar(&facilitatorURL, "f", "", "Base URL of the facilitator (required)")
	discoverFlags.StringVar(&resourceType, "type", "", "Filter by resource type")
	discoverFlags.IntVar(&limit, "limit", 0, "Maximum entries to return")
	discoverFlags.IntVar(&offset, "offset", 0, "Entries to skip")

	discoverFlags.Parse(os.Args[2:])

	if facilitatorURL == "" {
		fmt.Fprintln(os.Stderr, "Error: --facilitator or -f flag is required")
		discoverFlags.PrintDefaults()
		os.Exit(1)
	}

	fc := client.NewFacilitatorClient(facilitatorURL)
	resp, err := fc.ListResources(context.Background(), resourceType, limit, offset)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Resources: %d of %d\n\n", len(resp.Items), resp.Pagination.Total)
	for i, item := range resp.Items {
		if i > 0 {
			fmt.Println("\n---")
		}
		jsonBytes, err := json.MarshalIndent(item, "", "  ")
		if err != nil {
			continue
		}
		fmt.Println(string(jsonBytes))
	}
}
