package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/vorpalengineering/x402-stellar/client"
	"github.com/vorpalengineering/x402-stellar/types"
	"github.com/vorpalengineering/x402-stellar/utils"
)

// secretKeyEnv holds the payer's secret seed.
// ex: export X402_SECRET_KEY=S...
const secretKeyEnv = "X402_SECRET_KEY"

func payCommand() {
	// Define flags
	payFlags := flag.NewFlagSet("pay", flag.ExitOnError)
	var resource, method, data, output string
	payFlags.StringVar(&resource, "resource", "", "URL of the resource to pay for (required)")
	payFlags.StringVar(&resource, "r", "", "URL of the resource to pay for (required)")
	payFlags.StringVar(&method, "method", "GET", "HTTP method (GET or POST)")
	payFlags.StringVar(&method, "m", "GET", "HTTP method (GET or POST)")
	payFlags.StringVar(&data, "data", "", "Request body as JSON string")
	payFlags.StringVar(&data, "d", "", "Request body as JSON string")
	payFlags.StringVar(&output, "output", "", "File path to write response body")
	payFlags.StringVar(&output, "o", "", "File path to write response body")

	payFlags.Parse(os.Args[2:])

	if method != "GET" && method != "POST" {
		fmt.Fprintf(os.Stderr, "Error: --method must be GET or POST, got %s\n", method)
		os.Exit(1)
	}
	if resource == "" {
		fmt.Fprintln(os.Stderr, "Error: --resource or -r flag is required")
		fmt.Fprintln(os.Stderr, "\nUsage:")
		fmt.Fprintln(os.Stderr, "  X402_SECRET_KEY=S... x402cli pay -r <url>")
		payFlags.PrintDefaults()
		os.Exit(1)
	}

	secret := os.Getenv(secretKeyEnv)
	if secret == "" {
		fmt.Fprintf(os.Stderr, "Error: %s environment variable required\n", secretKeyEnv)
		os.Exit(1)
	}

	signer, err := client.NewLocalSigner(secret)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var body []byte
	contentType := ""
	if data != "" {
		body = []byte(data)
		contentType = "application/json"
	}

	c := client.NewClient(signer)
	resp, err := c.Do(context.Background(), method, resource, contentType, body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading response: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Status: %d %s\n", resp.StatusCode, resp.Status)
	if header := resp.Header.Get(types.PaymentResponseHeader); header != "" {
		if settlement, err := utils.DecodeSettlementHeader(header); err == nil {
			fmt.Printf("Settled: tx=%s network=%s payer=%s\n", settlement.Transaction, settlement.Network, settlement.Payer)
		}
	}

	if output != "" {
		if err := os.WriteFile(output, respBody, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Response written to %s\n", output)
		return
	}

	fmt.Println(string(respBody))
}
