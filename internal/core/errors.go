package core

import (
	"errors"

	"github.com/illarion/seedvault/internal/crypto"
	"github.com/illarion/seedvault/internal/hd"
	"github.com/illarion/seedvault/internal/keystore"
	"github.com/illarion/seedvault/internal/session"
	"github.com/illarion/seedvault/internal/signer"
	"github.com/illarion/seedvault/internal/vault"
)

var (
	ErrInvalidRequest    = errors.New("invalid request")
	ErrPromptCanceled    = errors.New("authentication canceled")
	ErrPromptFailed      = errors.New("authentication failed")
	ErrPromptUnavailable = errors.New("authentication unavailable")
	ErrNoVault           = errors.New("no sealed vault")
)

// Kind classifies an error so callers can branch on cause
type Kind int

const (
	KindInternal Kind = iota
	KindInvalidRecord
	KindInvalidEnvelope
	KindUnsupportedVersion
	KindAuthenticationFailure
	KindAuthRequired
	KindSessionExpired
	KindSessionMismatch
	KindNoSession
	KindInvalidDerivationPath
	KindInvalidRequest
	KindPromptCanceled
)

var kindNames = map[Kind]string{
	KindInternal:              "Internal",
	KindInvalidRecord:         "InvalidRecord",
	KindInvalidEnvelope:       "InvalidEnvelope",
	KindUnsupportedVersion:    "UnsupportedVersion",
	KindAuthenticationFailure: "AuthenticationFailure",
	KindAuthRequired:          "AuthRequired",
	KindSessionExpired:        "SessionExpired",
	KindSessionMismatch:       "SessionMismatch",
	KindNoSession:             "NoSession",
	KindInvalidDerivationPath: "InvalidDerivationPath",
	KindInvalidRequest:        "InvalidRequest",
	KindPromptCanceled:        "PromptCanceled",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindInternal]
}

// kindTable is checked in order; the first sentinel found in the chain wins
var kindTable = []struct {
	err  error
	kind Kind
}{
	{vault.ErrUnsupportedVersion, KindUnsupportedVersion},
	{vault.ErrInvalidRecord, KindInvalidRecord},
	{vault.ErrInvalidEnvelope, KindInvalidEnvelope},
	{crypto.ErrAuthFailed, KindAuthenticationFailure},
	{ErrPromptFailed, KindAuthenticationFailure},
	{keystore.ErrAuthRequired, KindAuthRequired},
	{session.ErrNoSession, KindNoSession},
	{session.ErrSaltMismatch, KindSessionMismatch},
	{session.ErrExpired, KindSessionExpired},
	{hd.ErrInvalidDerivationPath, KindInvalidDerivationPath},
	{ErrInvalidRequest, KindInvalidRequest},
	{signer.ErrInvalidDigest, KindInvalidRequest},
	{signer.ErrUnsupportedNetwork, KindInvalidRequest},
	{signer.ErrInvalidSignature, KindInvalidRequest},
	{ErrPromptCanceled, KindPromptCanceled},
}

// KindOf maps err onto the error kind enumeration. Unknown errors are
// KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	for _, entry := range kindTable {
		if errors.Is(err, entry.err) {
			return entry.kind
		}
	}
	return KindInternal
}
