package core

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/illarion/seedvault/internal/hd"
)

// scope collects the sensitive material of one call. Close wipes all of it
// and must be deferred right after the scope is created, so that returns,
// errors and panics all pass through it.
type scope struct {
	wipe  func([]byte)
	bufs  [][]byte
	keys  []*hd.Key
	privs []*btcec.PrivateKey
}

func newScope(wipe func([]byte)) *scope {
	return &scope{wipe: wipe}
}

// bytes tracks b and returns it
func (s *scope) bytes(b []byte) []byte {
	if b != nil {
		s.bufs = append(s.bufs, b)
	}
	return b
}

func (s *scope) key(k *hd.Key) *hd.Key {
	if k != nil {
		s.keys = append(s.keys, k)
	}
	return k
}

func (s *scope) priv(p *btcec.PrivateKey) *btcec.PrivateKey {
	if p != nil {
		s.privs = append(s.privs, p)
	}
	return p
}

// Close wipes everything tracked, newest first
func (s *scope) Close() {
	for i := len(s.privs) - 1; i >= 0; i-- {
		s.privs[i].Zero()
	}
	for i := len(s.keys) - 1; i >= 0; i-- {
		s.keys[i].Zero()
	}
	for i := len(s.bufs) - 1; i >= 0; i-- {
		s.wipe(s.bufs[i])
	}
	s.privs, s.keys, s.bufs = nil, nil, nil
}
