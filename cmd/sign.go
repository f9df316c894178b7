package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/illarion/seedvault/internal/config"
	"github.com/illarion/seedvault/internal/core"
	"github.com/illarion/seedvault/internal/crypto"
)

// SignOptions controls Sign
type SignOptions struct {
	Path    string
	Hash    string
	Network string
	// Vault reads the envelope from a file instead of the database
	Vault string
	JSON  bool
}

// Sign signs a 32-byte digest with the key at opts.Path
func Sign(ctx context.Context, cfg *config.Config, opts SignOptions) {
	if opts.Hash == "" {
		fmt.Fprintln(os.Stderr, "Error: --hash is required")
		os.Exit(1)
	}

	e := OpenEnvOrExit(cfg)
	defer e.Close()

	env, err := e.LoadVault(opts.Vault)
	if err != nil {
		HandleError(err)
	}

	pin := GetPINOrExit("Enter PIN: ")
	defer crypto.ClearBytes(pin)

	res, err := e.Manager.Sign(ctx, core.SignRequest{
		Vault:       env,
		PIN:         pin,
		Path:        opts.Path,
		MessageHash: opts.Hash,
		Network:     opts.Network,
	})
	if err != nil {
		HandleError(err)
	}

	if opts.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			HandleError(err)
		}
		return
	}

	fmt.Printf("Signature: %s\n", res.Signature)
	fmt.Printf("Public key: %s\n", res.PubKey)
	if res.RecID != nil {
		fmt.Printf("Recovery id: %d\n", *res.RecID)
	}
}
