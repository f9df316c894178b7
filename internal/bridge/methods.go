package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/illarion/seedvault/internal/core"
	"github.com/illarion/seedvault/internal/crypto"
)

type vaultParams struct {
	Vault json.RawMessage `json:"vault"`
	PIN   string          `json:"pin"`
}

type signParams struct {
	vaultParams
	Path        string `json:"path"`
	MessageHash string `json:"messageHash"`
	Network     string `json:"network"`
}

type itemParams struct {
	Key              string  `json:"key"`
	Value            *string `json:"value"`
	RequireBiometric bool    `json:"requireBiometric"`
}

type authParams struct {
	DurationSeconds *int `json:"durationSeconds"`
}

func (s *Server) unlock(ctx context.Context, params json.RawMessage) (any, error) {
	var p vaultParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	env, err := decodeVault(p.Vault)
	if err != nil {
		return nil, err
	}
	pin := []byte(p.PIN)
	defer crypto.ClearBytes(pin)

	if err := s.mgr.Unlock(ctx, env, pin); err != nil {
		return nil, err
	}
	expires, _ := s.mgr.SessionExpiresAt()
	return map[string]any{
		"unlocked":    true,
		"expiresAtMs": expires.UnixMilli(),
	}, nil
}

func (s *Server) sign(ctx context.Context, params json.RawMessage) (any, error) {
	var p signParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	env, err := decodeVault(p.Vault)
	if err != nil {
		return nil, err
	}
	pin := []byte(p.PIN)
	defer crypto.ClearBytes(pin)

	return s.mgr.Sign(ctx, core.SignRequest{
		Vault:       env,
		PIN:         pin,
		Path:        p.Path,
		MessageHash: p.MessageHash,
		Network:     p.Network,
	})
}

func (s *Server) addresses(ctx context.Context, params json.RawMessage) (any, error) {
	var p vaultParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	env, err := decodeVault(p.Vault)
	if err != nil {
		return nil, err
	}
	pin := []byte(p.PIN)
	defer crypto.ClearBytes(pin)

	return s.mgr.Addresses(ctx, env, pin)
}

func (s *Server) clearSession(context.Context, json.RawMessage) (any, error) {
	s.mgr.ClearSession()
	return map[string]any{"cleared": true}, nil
}

func (s *Server) sessionStatus(context.Context, json.RawMessage) (any, error) {
	expires, ok := s.mgr.SessionExpiresAt()
	result := map[string]any{"active": ok}
	if ok {
		result["expiresAtMs"] = expires.UnixMilli()
	}
	return result, nil
}

func (s *Server) setItem(_ context.Context, params json.RawMessage) (any, error) {
	var p itemParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.Key == "" || p.Value == nil {
		return nil, fmt.Errorf("%w: key and value required", core.ErrInvalidRequest)
	}
	if err := s.store.SetItem(p.Key, *p.Value, p.RequireBiometric); err != nil {
		return nil, err
	}
	return struct{}{}, nil
}

func (s *Server) getItem(_ context.Context, params json.RawMessage) (any, error) {
	var p itemParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	value, found, err := s.store.GetItem(p.Key, p.RequireBiometric)
	if err != nil {
		return nil, err
	}
	if !found {
		return map[string]any{"value": nil}, nil
	}
	return map[string]any{"value": value}, nil
}

func (s *Server) hasItem(_ context.Context, params json.RawMessage) (any, error) {
	var p itemParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	exists, err := s.store.HasItem(p.Key)
	if err != nil {
		return nil, err
	}
	return map[string]any{"exists": exists}, nil
}

func (s *Server) removeItem(_ context.Context, params json.RawMessage) (any, error) {
	var p itemParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if err := s.store.RemoveItem(p.Key, p.RequireBiometric); err != nil {
		return nil, err
	}
	return struct{}{}, nil
}

func (s *Server) authenticate(ctx context.Context, params json.RawMessage) (any, error) {
	var p authParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	var validUntil time.Time
	var err error
	if p.DurationSeconds != nil {
		validUntil, err = s.store.Authenticate(ctx, *p.DurationSeconds)
	} else {
		validUntil, err = s.store.AuthenticateDefault(ctx)
	}
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"authenticated": true,
		"validUntilMs":  validUntil.UnixMilli(),
	}, nil
}

func (s *Server) clearBiometricSession(context.Context, json.RawMessage) (any, error) {
	s.store.ClearBiometricSession()
	return struct{}{}, nil
}

func (s *Server) isAvailable(context.Context, json.RawMessage) (any, error) {
	return map[string]any{"available": s.store.IsAvailable()}, nil
}
