package vault

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// EnvelopeVersion is the only envelope version this package reads or writes
const EnvelopeVersion = 1

const ivSize = 12

var (
	ErrInvalidEnvelope    = errors.New("invalid envelope")
	ErrUnsupportedVersion = errors.New("unsupported version")
)

// Bytes is a byte slice that travels as a JSON array of small integers
// instead of the base64 string encoding/json uses for []byte.
type Bytes []byte

// MarshalJSON encodes b as [n, n, ...]
func (b Bytes) MarshalJSON() ([]byte, error) {
	out := make([]byte, 0, 2+len(b)*4)
	out = append(out, '[')
	for i, v := range b {
		if i > 0 {
			out = append(out, ',')
		}
		out = strconv.AppendUint(out, uint64(v), 10)
	}
	return append(out, ']'), nil
}

// UnmarshalJSON decodes an array of integers in 0..255
func (b *Bytes) UnmarshalJSON(data []byte) error {
	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return err
	}
	if ints == nil {
		return errors.New("byte array is null")
	}
	out := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return fmt.Errorf("element %d out of byte range: %d", i, v)
		}
		out[i] = byte(v)
	}
	*b = out
	return nil
}

// Envelope wraps a PIN-protected seed: the key is PBKDF2(pin, Salt) and Data
// is the AES-GCM ciphertext of the seed under IV.
type Envelope struct {
	Version int   `json:"v"`
	Salt    Bytes `json:"salt"`
	IV      Bytes `json:"iv"`
	Data    Bytes `json:"data"`
}

type envelopeHeader struct {
	Version *int `json:"v"`
}

type rawEnvelope struct {
	Salt *Bytes `json:"salt"`
	IV   *Bytes `json:"iv"`
	Data *Bytes `json:"data"`
}

// DecodeEnvelope parses a vault envelope. The version is decoded on its own
// first, so other versions are rejected whatever their fields look like.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var header envelopeHeader
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if header.Version == nil {
		return nil, fmt.Errorf("%w: missing version", ErrInvalidEnvelope)
	}
	if *header.Version != EnvelopeVersion {
		return nil, fmt.Errorf("%w: envelope version %d", ErrUnsupportedVersion, *header.Version)
	}

	var raw rawEnvelope
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if raw.Salt == nil || raw.IV == nil || raw.Data == nil {
		return nil, fmt.Errorf("%w: missing field", ErrInvalidEnvelope)
	}
	if len(*raw.Salt) == 0 {
		return nil, fmt.Errorf("%w: empty salt", ErrInvalidEnvelope)
	}
	if len(*raw.IV) != ivSize {
		return nil, fmt.Errorf("%w: iv must be %d bytes", ErrInvalidEnvelope, ivSize)
	}

	return &Envelope{
		Version: *header.Version,
		Salt:    *raw.Salt,
		IV:      *raw.IV,
		Data:    *raw.Data,
	}, nil
}

// EncodeEnvelope serializes an envelope in the same integer-array form
// DecodeEnvelope reads.
func EncodeEnvelope(e *Envelope) ([]byte, error) {
	if e.Version != EnvelopeVersion {
		return nil, fmt.Errorf("%w: envelope version %d", ErrUnsupportedVersion, e.Version)
	}
	return json.Marshal(e)
}
