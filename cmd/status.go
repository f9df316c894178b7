package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/illarion/seedvault/internal/config"
)

// Status shows the database state. No PIN is required.
func Status(cfg *config.Config) {
	info, err := os.Stat(cfg.Database)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Printf("No seedvault database found at %s\n", cfg.Database)
			fmt.Println("Run 'seedvault init' to create one")
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	e := OpenEnvOrExit(cfg)
	defer e.Close()

	vaultID, err := e.DB.GetVaultID()
	if err != nil {
		HandleError(err)
	}
	created, err := e.DB.GetCreated()
	if err != nil {
		HandleError(err)
	}
	modified, err := e.DB.GetModified()
	if err != nil {
		HandleError(err)
	}
	_, sealed, err := e.DB.GetEnvelope()
	if err != nil {
		HandleError(err)
	}
	items, err := e.DB.ListItems()
	if err != nil {
		HandleError(err)
	}

	fmt.Printf("Database:  %s (%s)\n", cfg.Database, formatSize(info.Size()))
	if vaultID != "" {
		fmt.Printf("Vault ID:  %s\n", vaultID)
	}
	fmt.Printf("Created:   %s\n", created.Format(time.RFC3339))
	fmt.Printf("Modified:  %s\n", modified.Format(time.RFC3339))
	if sealed {
		fmt.Println("Vault:     sealed")
	} else {
		fmt.Println("Vault:     none (run 'seedvault seal')")
	}
	fmt.Printf("Items:     %d\n", len(items))

	fmt.Println("\nKeyring:")
	for _, alias := range aliases {
		state := "not created"
		if e.Keys.HasKey(alias) {
			state = "present"
		}
		fmt.Printf("  %-24s %s\n", alias, state)
	}
}
