package core

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"github.com/illarion/seedvault/internal/config"
	"github.com/illarion/seedvault/internal/crypto"
	"golang.org/x/term"
)

// ReadPIN reads a PIN from the terminal without echoing. The prompt goes to
// stderr so stdout stays clean for command output.
func ReadPIN(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)

	// Read PIN without echo
	pin, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // New line after PIN

	if err != nil {
		return nil, fmt.Errorf("failed to read PIN: %w", err)
	}

	return pin, nil
}

// ReadPINConfirm reads a PIN twice and ensures they match
func ReadPINConfirm() ([]byte, error) {
	pin1, err := ReadPIN("Enter PIN: ")
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(pin1)

	pin2, err := ReadPIN("Confirm PIN: ")
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(pin2)

	if !crypto.ConstantTimeCompare(pin1, pin2) {
		return nil, fmt.Errorf("PINs do not match")
	}

	// Return a copy of the PIN
	result := make([]byte, len(pin1))
	copy(result, pin1)
	return result, nil
}

// GetPINFromEnv reads the PIN from the SEEDVAULT_PIN environment variable
func GetPINFromEnv() []byte {
	pin := os.Getenv(config.EnvPIN)
	if pin == "" {
		return nil
	}
	// Return a copy to avoid issues when clearing the bytes
	result := make([]byte, len(pin))
	copy(result, []byte(pin))
	return result
}

// ReadMnemonic reads a mnemonic phrase. On a terminal it is read without
// echo; otherwise the first line of stdin is used.
func ReadMnemonic(prompt string) (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		words, err := ReadPIN(prompt)
		if err != nil {
			return "", err
		}
		defer crypto.ClearBytes(words)
		return strings.TrimSpace(string(words)), nil
	}
	return readLine(os.Stdin)
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
