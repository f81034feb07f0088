//go:build !tinygo

package config

import "errors"

// MemBackend is an in-memory Backend for host tests: no durability, but the
// same (namespace, key) -> blob contract a flash-backed board satisfies.
type MemBackend struct {
	data map[string]map[string][]byte
	// FailNamespace, if set, makes every Set against that namespace fail,
	// so callers can exercise the write-through rollback path.
	FailNamespace string
}

func NewMemBackend() *MemBackend {
	return &MemBackend{data: make(map[string]map[string][]byte)}
}

func (m *MemBackend) Get(namespace, key string) ([]byte, bool, error) {
	ns, ok := m.data[namespace]
	if !ok {
		return nil, false, nil
	}
	v, ok := ns[key]
	return v, ok, nil
}

func (m *MemBackend) Set(namespace, key string, value []byte) error {
	if namespace == m.FailNamespace && m.FailNamespace != "" {
		return errors.New("simulated write failure")
	}
	ns, ok := m.data[namespace]
	if !ok {
		ns = make(map[string][]byte)
		m.data[namespace] = ns
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	ns[key] = cp
	return nil
}

func (m *MemBackend) Delete(namespace, key string) error {
	ns, ok := m.data[namespace]
	if !ok {
		return nil
	}
	delete(ns, key)
	return nil
}

func (m *MemBackend) Keys(namespace string) ([]string, error) {
	ns, ok := m.data[namespace]
	if !ok {
		return nil, nil
	}
	keys := make([]string, 0, len(ns))
	for k := range ns {
		keys = append(keys, k)
	}
	return keys, nil
}
