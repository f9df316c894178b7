package hd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
)

var ErrInvalidDerivationPath = errors.New("invalid derivation path")

// MaxIndex is the largest index a segment may carry; the top bit is
// reserved for hardening.
const MaxIndex = hdkeychain.HardenedKeyStart - 1

// Segment is one step of a derivation path
type Segment struct {
	Index    uint32
	Hardened bool
}

// ChildIndex returns the BIP32 child number for the segment
func (s Segment) ChildIndex() uint32 {
	if s.Hardened {
		return s.Index + hdkeychain.HardenedKeyStart
	}
	return s.Index
}

func (s Segment) String() string {
	if s.Hardened {
		return strconv.FormatUint(uint64(s.Index), 10) + "'"
	}
	return strconv.FormatUint(uint64(s.Index), 10)
}

// Path is an ordered list of derivation steps below the master key
type Path []Segment

func (p Path) String() string {
	var b strings.Builder
	b.WriteString("m")
	for _, s := range p {
		b.WriteByte('/')
		b.WriteString(s.String())
	}
	return b.String()
}

// ParsePath parses a path such as m/84'/0'/0'/0/0. The leading "m" is
// optional; "'" or "h" marks a hardened segment.
func ParsePath(s string) (Path, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidDerivationPath)
	}

	parts := strings.Split(s, "/")
	if parts[0] == "m" {
		parts = parts[1:]
	}

	path := make(Path, 0, len(parts))
	for _, part := range parts {
		seg, err := parseSegment(part)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidDerivationPath, s, err)
		}
		path = append(path, seg)
	}
	return path, nil
}

func parseSegment(part string) (Segment, error) {
	var seg Segment
	switch {
	case strings.HasSuffix(part, "'"):
		seg.Hardened = true
		part = strings.TrimSuffix(part, "'")
	case strings.HasSuffix(part, "h"):
		seg.Hardened = true
		part = strings.TrimSuffix(part, "h")
	}

	if part == "" {
		return seg, errors.New("empty segment")
	}
	// ParseUint accepts a leading '+'; digits only here
	for _, r := range part {
		if r < '0' || r > '9' {
			return seg, fmt.Errorf("segment %q is not a number", part)
		}
	}

	n, err := strconv.ParseUint(part, 10, 32)
	if err != nil || n > MaxIndex {
		return seg, fmt.Errorf("index %s out of range", part)
	}
	seg.Index = uint32(n)
	return seg, nil
}
