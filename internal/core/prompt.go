package core

import (
	"context"
	"fmt"
	"os"

	"github.com/illarion/seedvault/internal/crypto"
	"golang.org/x/term"
)

const ttyPath = "/dev/tty"

// TerminalPrompter confirms identity by asking for the vault PIN on the
// controlling terminal. It reads the tty directly so it also works while
// stdin carries bridge traffic.
type TerminalPrompter struct {
	// Verify checks the PIN, typically Manager.Verify against the stored vault
	Verify func(ctx context.Context, pin []byte) error
}

// Prompt implements Prompter. An empty PIN counts as a cancel.
func (p *TerminalPrompter) Prompt(ctx context.Context, title string) error {
	if p.Verify == nil {
		return ErrPromptUnavailable
	}

	pin := GetPINFromEnv()
	if pin == nil {
		var err error
		pin, err = readTTY(title + " - enter PIN: ")
		if err != nil {
			return err
		}
	}
	defer crypto.ClearBytes(pin)

	if len(pin) == 0 {
		return ErrPromptCanceled
	}

	if err := p.Verify(ctx, pin); err != nil {
		if KindOf(err) == KindAuthenticationFailure {
			return ErrPromptFailed
		}
		return err
	}
	return nil
}

func readTTY(prompt string) ([]byte, error) {
	tty, err := os.OpenFile(ttyPath, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPromptUnavailable, err)
	}
	defer tty.Close()

	fmt.Fprint(tty, prompt)
	pin, err := term.ReadPassword(int(tty.Fd()))
	fmt.Fprintln(tty)
	if err != nil {
		// Interrupted input is treated as the user backing out
		return nil, fmt.Errorf("%w: %v", ErrPromptCanceled, err)
	}
	return pin, nil
}
