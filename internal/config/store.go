// Package config implements the persisted key-value store and the typed
// configuration manager of spec §4.5: namespaced NVS-style storage, boot-time
// load with validation, write-through persistence with rollback, and
// config_response assembly.
//
// Grounded on the teacher's services/config (tinyjson.Raw parse of an
// embedded blob into map[string]any, then republished) generalized from a
// compile-time embed to a read/write namespaced backend, and on
// services/hal/internal/service's apply-then-rollback-on-failure idiom.
package config

import "trabajante/internal/errcode"

// Backend is the raw namespaced byte-blob storage a board provides. Each
// (namespace, key) pair holds one JSON-encoded value, matching the "no
// streaming, <4KB per value" storage note in §4.5.
type Backend interface {
	Get(namespace, key string) ([]byte, bool, error)
	Set(namespace, key string, value []byte) error
	Delete(namespace, key string) error
	Keys(namespace string) ([]string, error)
}

// Store wraps a Backend with the read/write error mapping the spec names:
// NVS_READ_FAILED (2002) and NVS_WRITE_FAILED (2003).
type Store struct {
	backend Backend
}

func NewStore(backend Backend) *Store { return &Store{backend: backend} }

func (s *Store) Get(namespace, key string) ([]byte, bool, error) {
	raw, ok, err := s.backend.Get(namespace, key)
	if err != nil {
		return nil, false, errcode.New(errcode.NVSReadFailed, "Store.Get", err.Error())
	}
	return raw, ok, nil
}

func (s *Store) Set(namespace, key string, value []byte) error {
	if err := s.backend.Set(namespace, key, value); err != nil {
		return errcode.New(errcode.NVSWriteFailed, "Store.Set", err.Error())
	}
	return nil
}

func (s *Store) Delete(namespace, key string) error {
	if err := s.backend.Delete(namespace, key); err != nil {
		return errcode.New(errcode.NVSWriteFailed, "Store.Delete", err.Error())
	}
	return nil
}

func (s *Store) Keys(namespace string) ([]string, error) {
	keys, err := s.backend.Keys(namespace)
	if err != nil {
		return nil, errcode.New(errcode.NVSReadFailed, "Store.Keys", err.Error())
	}
	return keys, nil
}
