package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/illarion/seedvault/internal/config"
)

// ItemOptions controls the item commands
type ItemOptions struct {
	// Biometric gates the item behind the authentication window and
	// authenticates before the operation
	Biometric bool
	// Seconds is the length of the window opened by --biometric, at least 10
	Seconds int
}

func authenticate(ctx context.Context, e *Env, opts ItemOptions) {
	if !opts.Biometric {
		return
	}
	validUntil, err := e.Store.Authenticate(ctx, opts.Seconds)
	if err != nil {
		HandleError(err)
	}
	fmt.Fprintf(os.Stderr, "Authenticated until %s\n", validUntil.Format(time.Kitchen))
}

// ItemSet stores value under key
func ItemSet(ctx context.Context, cfg *config.Config, key, value string, opts ItemOptions) {
	e := OpenEnvOrExit(cfg)
	defer e.Close()

	authenticate(ctx, e, opts)
	if err := e.Store.SetItem(key, value, opts.Biometric); err != nil {
		HandleError(err)
	}
	fmt.Printf("✓ Stored %s\n", key)
}

// ItemGet prints the value stored under key
func ItemGet(ctx context.Context, cfg *config.Config, key string, opts ItemOptions) {
	e := OpenEnvOrExit(cfg)
	defer e.Close()

	authenticate(ctx, e, opts)
	value, found, err := e.Store.GetItem(key, opts.Biometric)
	if err != nil {
		HandleError(err)
	}
	if !found {
		fmt.Fprintf(os.Stderr, "Error: item %s not found\n", key)
		os.Exit(1)
	}
	fmt.Println(value)
}

// ItemHas exits with status 0 when key exists and 1 otherwise
func ItemHas(cfg *config.Config, key string) {
	e := OpenEnvOrExit(cfg)
	defer e.Close()

	exists, err := e.Store.HasItem(key)
	if err != nil {
		HandleError(err)
	}
	if !exists {
		fmt.Printf("%s: not found\n", key)
		e.Close()
		os.Exit(1)
	}
	fmt.Printf("%s: present\n", key)
}

// ItemRemove deletes key
func ItemRemove(ctx context.Context, cfg *config.Config, key string, opts ItemOptions) {
	e := OpenEnvOrExit(cfg)
	defer e.Close()

	authenticate(ctx, e, opts)
	if err := e.Store.RemoveItem(key, opts.Biometric); err != nil {
		HandleError(err)
	}
	fmt.Printf("✓ Removed %s\n", key)
}

// ItemList prints the stored item keys
func ItemList(cfg *config.Config) {
	e := OpenEnvOrExit(cfg)
	defer e.Close()

	keys, err := e.DB.ListItems()
	if err != nil {
		HandleError(err)
	}
	if len(keys) == 0 {
		fmt.Println("  (none)")
		return
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %s\n", k)
	}
}
