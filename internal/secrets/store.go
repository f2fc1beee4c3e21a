// Copyright (c) 2025 FluidicML
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package secrets persists the agent's two secrets: the API key used to
// authenticate the cloud bus socket and the Dentrix connection string.
// It provides a unified Store interface with two backends: a per-user file
// store (one base64 record per secret kind) and the OS keychain via the
// keyring library.
//
// The file backend is the default. Its on-disk format is shared with the
// settings application: a single line holding the base64 of the UTF-8
// value, one file per secret kind.
package secrets

import (
	"encoding/base64"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"

	"gain/agent/internal/config"
	"gain/agent/internal/errors"
	"gain/agent/internal/xdg"
)

// Store persists the agent's secrets.
type Store interface {
	ReadAPIKey() (string, error)
	WriteAPIKey(key string) error
	ReadConnString() (string, error)
	WriteConnString(connStr string) error
}

// File names per secret kind, fixed so the settings app can find them.
const (
	socketFile  = "Socket.data"
	dentrixFile = "Dentrix.data"
)

// Open returns the store selected by the storage configuration.
func Open(cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case "", "file":
		dir, err := xdg.StateDir()
		if err != nil {
			return nil, err
		}
		return &FileStore{Dir: dir}, nil
	case "keyring":
		return OpenKeyring()
	default:
		return nil, errors.New(errors.StorageFailed, "unknown storage backend "+cfg.Backend)
	}
}

// FileStore keeps one file per secret kind under Dir.
type FileStore struct {
	Dir string
}

// ReadAPIKey returns the persisted API key, or "" when never written.
func (s *FileStore) ReadAPIKey() (string, error) {
	return s.read(socketFile)
}

// WriteAPIKey persists the API key.
func (s *FileStore) WriteAPIKey(key string) error {
	return s.write(socketFile, key)
}

// ReadConnString returns the persisted Dentrix connection string, or ""
// when never written.
func (s *FileStore) ReadConnString() (string, error) {
	return s.read(dentrixFile)
}

// WriteConnString persists the Dentrix connection string.
func (s *FileStore) WriteConnString(connStr string) error {
	return s.write(dentrixFile, connStr)
}

func (s *FileStore) read(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir, name))
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", errors.Wrap(errors.StorageFailed, "reading "+name, err)
	}
	line, _, _ := strings.Cut(strings.TrimRight(string(data), "\r\n"), "\n")
	// Early releases prefixed the record with a "API_KEY," tag. The value
	// itself is base64 so no comma can appear; take the last field.
	if i := strings.LastIndexByte(line, ','); i >= 0 {
		line = line[i+1:]
	}
	decoded, err := base64.StdEncoding.DecodeString(line)
	if err != nil {
		return "", errors.Wrap(errors.StorageFailed, "decoding "+name, err)
	}
	return string(decoded), nil
}

func (s *FileStore) write(name, value string) error {
	if err := os.MkdirAll(s.Dir, 0o700); err != nil {
		return errors.Wrap(errors.StorageFailed, "creating secret dir", err)
	}
	encoded := base64.StdEncoding.EncodeToString([]byte(value))
	if err := os.WriteFile(filepath.Join(s.Dir, name), []byte(encoded+"\n"), 0o600); err != nil {
		return errors.Wrap(errors.StorageFailed, "writing "+name, err)
	}
	return nil
}
