package cmd

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/illarion/seedvault/internal/config"
	"github.com/illarion/seedvault/internal/core"
	"github.com/illarion/seedvault/internal/crypto"
	"github.com/illarion/seedvault/internal/vault"
)

// SealOptions controls Seal
type SealOptions struct {
	// SeedHex is a raw seed in hex; when empty a mnemonic is read instead
	SeedHex    string
	Passphrase string
	// Out writes the envelope to a file instead of the database
	Out   string
	Force bool
}

// Seal encrypts a seed under a PIN and stores the resulting envelope
func Seal(_ context.Context, cfg *config.Config, opts SealOptions) {
	e := OpenEnvOrExit(cfg)
	defer e.Close()

	if opts.Out == "" && !opts.Force {
		if _, found, err := e.DB.GetEnvelope(); err != nil {
			HandleError(err)
		} else if found {
			fmt.Fprintf(os.Stderr, "Error: a vault is already sealed\n")
			fmt.Fprintf(os.Stderr, "Use --force to replace it\n")
			os.Exit(1)
		}
	}

	var seed []byte
	var mnemonic string
	if opts.SeedHex != "" {
		var err error
		seed, err = hex.DecodeString(strings.TrimPrefix(opts.SeedHex, "0x"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: seed is not valid hex\n")
			os.Exit(1)
		}
		defer crypto.ClearBytes(seed)
	} else {
		var err error
		mnemonic, err = core.ReadMnemonic("Enter mnemonic: ")
		if err != nil {
			HandleError(err)
		}
	}

	pin, err := GetPINForSeal()
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(pin)

	var env *vault.Envelope
	if seed != nil {
		env, err = e.Manager.Seal(seed, pin)
	} else {
		env, err = e.Manager.SealMnemonic(mnemonic, opts.Passphrase, pin)
	}
	if err != nil {
		HandleError(err)
	}

	data, err := vault.EncodeEnvelope(env)
	if err != nil {
		HandleError(err)
	}

	if opts.Out != "" {
		if err := os.WriteFile(opts.Out, data, 0600); err != nil {
			HandleError(err)
		}
		fmt.Printf("✓ Sealed vault written to %s\n", opts.Out)
		return
	}

	if err := e.DB.PutEnvelope(data); err != nil {
		HandleError(err)
	}
	fmt.Println("✓ Sealed vault")
}
