package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/illarion/seedvault/internal/config"
	"github.com/illarion/seedvault/internal/core"
	"github.com/illarion/seedvault/internal/keystore"
	"github.com/illarion/seedvault/internal/metrics"
	"github.com/illarion/seedvault/internal/session"
	"github.com/illarion/seedvault/internal/storage"
	"github.com/illarion/seedvault/internal/vault"
	"github.com/rs/zerolog/log"
)

// Env holds the opened vault database and the components built on it
type Env struct {
	Config  *config.Config
	DB      *storage.Storage
	Keys    *keystore.Keyring
	Window  *session.AuthWindow
	Manager *core.Manager
	Store   *core.Store
	Metrics *metrics.Metrics
}

// OpenEnv opens the configured database and wires the manager and item
// store. m may be nil.
func OpenEnv(cfg *config.Config, m *metrics.Metrics) (*Env, error) {
	if _, err := os.Stat(cfg.Database); errors.Is(err, os.ErrNotExist) {
		return nil, storage.ErrNotInitialized
	}

	db, err := storage.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	initialized, err := db.IsInitialized()
	if err != nil {
		db.Close()
		return nil, err
	}
	if !initialized {
		db.Close()
		return nil, storage.ErrNotInitialized
	}

	e := &Env{
		Config:  cfg,
		DB:      db,
		Window:  session.NewAuthWindow(),
		Metrics: m,
	}
	e.Keys = keystore.NewKeyring(cfg.KeyringService, e.Window)
	e.Manager = core.NewManager(
		core.WithLogger(log.Logger),
		core.WithMetrics(m),
		core.WithSessionCache(session.New(cfg.SessionTTL)),
	)

	prompter := &core.TerminalPrompter{Verify: e.verifyPIN}
	e.Store = core.NewStore(db, e.Keys, e.Window, prompter,
		core.WithLogger(log.Logger),
		core.WithMetrics(m),
		core.WithAuthDuration(cfg.BiometricTTL),
	)
	return e, nil
}

// OpenEnvOrExit is like OpenEnv but exits on error
func OpenEnvOrExit(cfg *config.Config) *Env {
	e, err := OpenEnv(cfg, nil)
	if err != nil {
		HandleError(err)
	}
	return e
}

// Close releases the database
func (e *Env) Close() error {
	return e.DB.Close()
}

// LoadVault reads the sealed envelope from path, or from the database when
// path is empty
func (e *Env) LoadVault(path string) (*vault.Envelope, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read vault file: %w", err)
		}
		return vault.DecodeEnvelope(data)
	}

	data, found, err := e.DB.GetEnvelope()
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, core.ErrNoVault
	}
	return vault.DecodeEnvelope(data)
}

func (e *Env) verifyPIN(ctx context.Context, pin []byte) error {
	env, err := e.LoadVault("")
	if err != nil {
		return err
	}
	return e.Manager.Verify(ctx, env, pin)
}

// GetPIN retrieves the PIN from the environment or prompts the user.
// The caller is responsible for calling crypto.ClearBytes on the returned PIN.
func GetPIN(prompt string) ([]byte, error) {
	// Try environment variable first
	pin := core.GetPINFromEnv()
	if pin != nil {
		return pin, nil
	}

	// Prompt user
	pin, err := core.ReadPIN(prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to read PIN: %w", err)
	}

	return pin, nil
}

// GetPINOrExit is like GetPIN but exits on error
func GetPINOrExit(prompt string) []byte {
	pin, err := GetPIN(prompt)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	return pin
}

// GetPINForSeal retrieves the PIN for a new vault.
// Checks environment variable first, then prompts with confirmation.
func GetPINForSeal() ([]byte, error) {
	// Try environment variable first
	pin := core.GetPINFromEnv()
	if pin != nil {
		return pin, nil
	}

	// Fall back to confirmation prompt
	return core.ReadPINConfirm()
}

// HandleError prints err for the user and exits
func HandleError(err error) {
	switch {
	case errors.Is(err, storage.ErrNotInitialized):
		fmt.Fprintf(os.Stderr, "Error: seedvault not initialized\n")
		fmt.Fprintf(os.Stderr, "Run 'seedvault init' first\n")
	case errors.Is(err, core.ErrNoVault):
		fmt.Fprintf(os.Stderr, "Error: no sealed vault\n")
		fmt.Fprintf(os.Stderr, "Run 'seedvault seal' first\n")
	default:
		switch core.KindOf(err) {
		case core.KindAuthenticationFailure:
			fmt.Fprintf(os.Stderr, "Error: wrong PIN or corrupted data\n")
		case core.KindAuthRequired:
			fmt.Fprintf(os.Stderr, "Error: authentication required\n")
			fmt.Fprintf(os.Stderr, "Use --biometric to authenticate first\n")
		case core.KindPromptCanceled:
			fmt.Fprintf(os.Stderr, "Canceled\n")
		default:
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
	}
	os.Exit(1)
}
