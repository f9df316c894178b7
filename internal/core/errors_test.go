package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/illarion/seedvault/internal/crypto"
	"github.com/illarion/seedvault/internal/hd"
	"github.com/illarion/seedvault/internal/keystore"
	"github.com/illarion/seedvault/internal/session"
	"github.com/illarion/seedvault/internal/signer"
	"github.com/illarion/seedvault/internal/vault"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{vault.ErrInvalidRecord, KindInvalidRecord},
		{fmt.Errorf("load: %w", vault.ErrInvalidEnvelope), KindInvalidEnvelope},
		{vault.ErrUnsupportedVersion, KindUnsupportedVersion},
		{crypto.ErrAuthFailed, KindAuthenticationFailure},
		{ErrPromptFailed, KindAuthenticationFailure},
		{keystore.ErrAuthRequired, KindAuthRequired},
		{session.ErrExpired, KindSessionExpired},
		{session.ErrSaltMismatch, KindSessionMismatch},
		{session.ErrNoSession, KindNoSession},
		{fmt.Errorf("%w: \"m/x\"", hd.ErrInvalidDerivationPath), KindInvalidDerivationPath},
		{signer.ErrInvalidDigest, KindInvalidRequest},
		{fmt.Errorf("%w: \"doge\"", signer.ErrUnsupportedNetwork), KindInvalidRequest},
		{ErrInvalidRequest, KindInvalidRequest},
		{ErrPromptCanceled, KindPromptCanceled},
		{errors.New("disk on fire"), KindInternal},
		{nil, KindInternal},
	}

	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.want {
			t.Errorf("KindOf(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}

func TestKindString(t *testing.T) {
	if KindSessionMismatch.String() != "SessionMismatch" {
		t.Errorf("String = %q", KindSessionMismatch.String())
	}
	if Kind(999).String() != "Internal" {
		t.Errorf("Unknown kind should print as Internal, got %q", Kind(999).String())
	}
}
