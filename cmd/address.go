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

// Address prints the default account addresses of the vault
func Address(ctx context.Context, cfg *config.Config, vaultFile string, asJSON bool) {
	e := OpenEnvOrExit(cfg)
	defer e.Close()

	env, err := e.LoadVault(vaultFile)
	if err != nil {
		HandleError(err)
	}

	pin := GetPINOrExit("Enter PIN: ")
	defer crypto.ClearBytes(pin)

	addrs, err := e.Manager.Addresses(ctx, env, pin)
	if err != nil {
		HandleError(err)
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(addrs); err != nil {
			HandleError(err)
		}
		return
	}

	fmt.Printf("Bitcoin  (%s): %s\n", core.BitcoinPath, addrs.Bitcoin)
	fmt.Printf("EVM      (%s): %s\n", core.EVMPath, addrs.EVM)
	fmt.Printf("Stacks   (%s): %s\n", core.StacksPath, addrs.StacksPubKey)
}
