package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/illarion/seedvault/internal/config"
	"github.com/illarion/seedvault/internal/storage"
)

// Init creates the seedvault database
func Init(cfg *config.Config) {
	if _, err := os.Stat(cfg.Database); err == nil {
		fmt.Fprintf(os.Stderr, "Error: %s already exists\n", cfg.Database)
		fmt.Fprintf(os.Stderr, "Use 'seedvault status' to see current state\n")
		os.Exit(1)
	} else if !errors.Is(err, os.ErrNotExist) {
		HandleError(err)
	}

	db, err := storage.Open(cfg.Database)
	if err != nil {
		HandleError(err)
	}
	defer db.Close()

	if err := db.Initialize(); err != nil {
		HandleError(err)
	}
	if _, err := db.GetOrCreateVaultID(); err != nil {
		HandleError(err)
	}

	fmt.Printf("✓ Initialized %s\n", cfg.Database)
}
