// Copyright (c) 2025 FluidicML
// Licensed under the MIT License. See LICENSE file in the project root for details.

package secrets

import (
	"errors"

	"github.com/99designs/keyring"
)

// ServiceName identifies our keychain/credential store namespace.
const ServiceName = "gain"

// Keys used for storing secrets in the OS keychain.
const (
	keyAPIKey     = "api_key"
	keyConnString = "dentrix_conn_str"
)

// KeyringStore persists secrets in the OS credential store.
type KeyringStore struct {
	ring keyring.Keyring
}

// OpenKeyring opens the OS keyring for the agent's service namespace.
func OpenKeyring() (*KeyringStore, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName:              ServiceName,
		WinCredPrefix:            ServiceName,
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, err
	}
	return &KeyringStore{ring: ring}, nil
}

// ReadAPIKey returns the stored API key, or "" when never written.
func (s *KeyringStore) ReadAPIKey() (string, error) {
	return s.get(keyAPIKey)
}

// WriteAPIKey persists the API key.
func (s *KeyringStore) WriteAPIKey(key string) error {
	return s.ring.Set(keyring.Item{Key: keyAPIKey, Data: []byte(key)})
}

// ReadConnString returns the stored connection string, or "" when never
// written.
func (s *KeyringStore) ReadConnString() (string, error) {
	return s.get(keyConnString)
}

// WriteConnString persists the Dentrix connection string.
func (s *KeyringStore) WriteConnString(connStr string) error {
	return s.ring.Set(keyring.Item{Key: keyConnString, Data: []byte(connStr)})
}

func (s *KeyringStore) get(key string) (string, error) {
	item, err := s.ring.Get(key)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", nil
		}
		return "", err
	}
	return string(item.Data), nil
}
