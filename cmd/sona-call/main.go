package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/sonalabs/sona-go/client"
	"github.com/sonalabs/sona-go/cmd/flags"
)

var paramsFlag = &cli.StringFlag{
	Name:  "params",
	Value: "{}",
	Usage: "operation parameters as a JSON object",
}

func main() {
	// Missing .env is fine; flags and real env vars still apply.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "sona-call",
		Usage: "invoke operations on a Sona enclave deployment",
		Flags: []cli.Flag{
			flags.BaseURLFlag,
			flags.APIKeyFlag,
			flags.WalletFlag,
			flags.OriginFlag,
			flags.TimeoutMsFlag,
			flags.IncludeAttestationFlag,
			flags.LogJSONFlag,
			flags.LogDebugFlag,
			flags.LogUIDFlag,
			flags.LogServiceFlag,
		},
		Commands: []*cli.Command{
			{
				Name:        "session",
				Usage:       "print the enclave's current public keys",
				Description: "Fetches GET {base-url}/session and prints the encryption and integrity keys.",
				Action: func(cCtx *cli.Context) error {
					c := newClient(cCtx)
					sess, err := c.Session(cCtx.Context)
					if err != nil {
						return err
					}
					fmt.Printf("mode:            %s\n", sess.Mode)
					fmt.Printf("encryption key:  %s\n", sess.EncryptionPubKeyB64)
					fmt.Printf("integrity key:   %s\n", sess.IntegrityPubkeyB64)
					return nil
				},
			},
			{
				Name:        "routes",
				Usage:       "list the operations available to this credential",
				Description: "Fetches GET {base-url}/meta and prints each route with its attestation class.",
				Action: func(cCtx *cli.Context) error {
					c := newClient(cCtx)
					routes, err := c.Routes(cCtx.Context)
					if err != nil {
						return err
					}
					keys := make([]string, 0, len(routes))
					for k := range routes {
						keys = append(keys, k)
					}
					sort.Strings(keys)
					for _, k := range keys {
						class := "plain"
						if routes[k].Attested {
							class = "attested"
						}
						fmt.Printf("%-40s %s\n", k, class)
					}
					return nil
				},
			},
			{
				Name:      "call",
				Usage:     "invoke an operation, e.g. sona-call call transfer/execute --params '{\"amount\":100}'",
				ArgsUsage: "<proto/action>",
				Flags:     []cli.Flag{paramsFlag},
				Action: func(cCtx *cli.Context) error {
					if cCtx.NArg() != 1 {
						return fmt.Errorf("expected exactly one route argument, got %d", cCtx.NArg())
					}
					var params map[string]any
					if err := json.Unmarshal([]byte(cCtx.String(paramsFlag.Name)), &params); err != nil {
						return fmt.Errorf("could not parse --params: %w", err)
					}

					c := newClient(cCtx)
					res, err := c.Call(cCtx.Context, cCtx.Args().First(), params)
					if err != nil {
						return err
					}
					if res == nil {
						fmt.Println("operation not supported by this credential")
						return nil
					}
					return printResult(res)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newClient(cCtx *cli.Context) *client.Client {
	return client.New(client.Config{
		BaseURL:            cCtx.String(flags.BaseURLFlag.Name),
		APIKey:             cCtx.String(flags.APIKeyFlag.Name),
		Wallet:             cCtx.String(flags.WalletFlag.Name),
		Origin:             cCtx.String(flags.OriginFlag.Name),
		Timeout:            flags.CallTimeout(cCtx),
		IncludeAttestation: cCtx.Bool(flags.IncludeAttestationFlag.Name),
		Log:                flags.SetupLogger(cCtx),
	})
}

func printResult(res *client.Result) error {
	if res.Intent == nil {
		pretty, err := json.MarshalIndent(json.RawMessage(res.Data), "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(pretty))
		return nil
	}

	it := res.Intent
	fmt.Printf("request id:   %s\n", it.RequestID())
	fmt.Printf("transaction:  %s\n", it.TransactionB64)
	fmt.Printf("verified:     %t\n", it.Verify())
	if len(it.Metadata) > 0 {
		meta, err := json.MarshalIndent(it.Metadata, "", "  ")
		if err != nil {
			return err
		}
		fmt.Printf("metadata:     %s\n", string(meta))
	}
	if it.Attestation != nil && len(it.Attestation.Proof) > 0 {
		fmt.Printf("proof:        %s\n", string(it.Attestation.Proof))
	}
	return nil
}
