package vault

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// Record versions. The version is never stored; it follows from the shape of
// the serialized string.
const (
	RecordV1 = 1 // iv:ciphertext, non-auth platform key
	RecordV2 = 2 // v2:iv:ciphertext, auth-gated platform key
)

const (
	recordSep   = ":"
	recordV2Tag = "v2"
)

var ErrInvalidRecord = errors.New("invalid record")

// Record is an encrypted secret as persisted in the item store
type Record struct {
	Version    int
	IV         []byte
	Ciphertext []byte
}

// DecodeRecord parses a persisted record string
func DecodeRecord(s string) (*Record, error) {
	parts := strings.Split(s, recordSep)

	var version int
	switch {
	case len(parts) == 2:
		version = RecordV1
	case len(parts) == 3 && parts[0] == recordV2Tag:
		version = RecordV2
		parts = parts[1:]
	default:
		return nil, ErrInvalidRecord
	}

	iv, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, fmt.Errorf("%w: iv: %v", ErrInvalidRecord, err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: ciphertext: %v", ErrInvalidRecord, err)
	}

	return &Record{
		Version:    version,
		IV:         iv,
		Ciphertext: ciphertext,
	}, nil
}

// EncodeRecord serializes a record. Any version other than RecordV2 is
// written in the v1 shape.
func EncodeRecord(r *Record) string {
	iv := base64.StdEncoding.EncodeToString(r.IV)
	ct := base64.StdEncoding.EncodeToString(r.Ciphertext)
	if r.Version == RecordV2 {
		return recordV2Tag + recordSep + iv + recordSep + ct
	}
	return iv + recordSep + ct
}
