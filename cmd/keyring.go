package cmd

import (
	"fmt"

	"github.com/illarion/seedvault/internal/config"
	"github.com/illarion/seedvault/internal/keystore"
)

var aliases = []string{keystore.AliasV1, keystore.AliasV2Auth}

// KeyringStatus shows which platform keys exist in the OS keyring
func KeyringStatus(cfg *config.Config) {
	keys := keystore.NewKeyring(cfg.KeyringService, nil)
	fmt.Printf("Service: %s\n", cfg.KeyringService)
	for _, alias := range aliases {
		if keys.HasKey(alias) {
			fmt.Printf("  %s: stored in keyring\n", alias)
		} else {
			fmt.Printf("  %s: not stored\n", alias)
		}
	}
}

// KeyringDelete removes the platform keys. Items encrypted under them become
// unreadable.
func KeyringDelete(cfg *config.Config) {
	keys := keystore.NewKeyring(cfg.KeyringService, nil)
	removed := 0
	for _, alias := range aliases {
		if !keys.HasKey(alias) {
			continue
		}
		if err := keys.DeleteKey(alias); err != nil {
			HandleError(err)
		}
		removed++
	}

	if removed == 0 {
		fmt.Println("No keys stored in keyring")
		return
	}
	fmt.Printf("Removed %d key(s) from keyring\n", removed)
}
