//go:build tinygo

package config

import (
	"encoding/binary"
	"errors"

	"tinygo.org/x/drivers/flash"
)

// A headerSize-byte header precedes every stored value in the flash journal: a 2-byte
// namespace length, 2-byte key length, 4-byte value length, then the bytes
// themselves. A zero-length namespace marks an unused tail record.
const headerSize = 8

// FlashBackend persists namespaced KV records to an external SPI flash chip
// via tinygo.org/x/drivers/flash, the same module the teacher already
// depends on for its I2C sensor drivers. Storage is a single append-only
// journal within one erase region; compaction on overflow is out of scope
// for the <4KB-per-value, low-churn config workload described in §4.5.
type FlashBackend struct {
	dev        *flash.Device
	regionBase int64
	regionSize int64
	cache      map[string]map[string][]byte
	loaded     bool
}

func NewFlashBackend(dev *flash.Device, regionBase, regionSize int64) *FlashBackend {
	return &FlashBackend{dev: dev, regionBase: regionBase, regionSize: regionSize}
}

func (f *FlashBackend) ensureLoaded() error {
	if f.loaded {
		return nil
	}
	f.cache = make(map[string]map[string][]byte)
	off := int64(0)
	hdr := make([]byte, headerSize)
	for off+headerSize <= f.regionSize {
		if _, err := f.dev.ReadAt(hdr, f.regionBase+off); err != nil {
			return err
		}
		nsLen := binary.LittleEndian.Uint16(hdr[0:2])
		keyLen := binary.LittleEndian.Uint16(hdr[2:4])
		valLen := binary.LittleEndian.Uint32(hdr[4:8])
		if nsLen == 0 {
			break // unwritten tail
		}
		body := make([]byte, int(nsLen)+int(keyLen)+int(valLen))
		if _, err := f.dev.ReadAt(body, f.regionBase+off+headerSize); err != nil {
			return err
		}
		ns := string(body[:nsLen])
		key := string(body[nsLen : nsLen+keyLen])
		val := body[nsLen+keyLen:]
		m, ok := f.cache[ns]
		if !ok {
			m = make(map[string][]byte)
			f.cache[ns] = m
		}
		m[key] = val
		off += headerSize + int64(len(body))
	}
	f.loaded = true
	return nil
}

func (f *FlashBackend) Get(namespace, key string) ([]byte, bool, error) {
	if err := f.ensureLoaded(); err != nil {
		return nil, false, err
	}
	ns, ok := f.cache[namespace]
	if !ok {
		return nil, false, nil
	}
	v, ok := ns[key]
	return v, ok, nil
}

// Set appends a new record and updates the in-RAM cache. The journal is
// replayed in order, so a later record for the same (namespace, key)
// shadows an earlier one on the next cold load.
func (f *FlashBackend) Set(namespace, key string, value []byte) error {
	if err := f.ensureLoaded(); err != nil {
		return err
	}
	off, err := f.nextFreeOffset()
	if err != nil {
		return err
	}
	body := make([]byte, 0, len(namespace)+len(key)+len(value))
	body = append(body, namespace...)
	body = append(body, key...)
	body = append(body, value...)
	if off+headerSize+int64(len(body)) > f.regionSize {
		return errors.New("config region full")
	}
	hdr := make([]byte, headerSize)
	binary.LittleEndian.PutUint16(hdr[0:2], uint16(len(namespace)))
	binary.LittleEndian.PutUint16(hdr[2:4], uint16(len(key)))
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(len(value)))
	if _, err := f.dev.WriteAt(hdr, f.regionBase+off); err != nil {
		return err
	}
	if _, err := f.dev.WriteAt(body, f.regionBase+off+headerSize); err != nil {
		return err
	}
	m, ok := f.cache[namespace]
	if !ok {
		m = make(map[string][]byte)
		f.cache[namespace] = m
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	m[key] = cp
	return nil
}

func (f *FlashBackend) Delete(namespace, key string) error {
	// A tombstone is just an empty-value record; Get treats "present, zero
	// length" as absent at the ConfigManager layer.
	return f.Set(namespace, key, nil)
}

func (f *FlashBackend) Keys(namespace string) ([]string, error) {
	if err := f.ensureLoaded(); err != nil {
		return nil, err
	}
	ns, ok := f.cache[namespace]
	if !ok {
		return nil, nil
	}
	keys := make([]string, 0, len(ns))
	for k := range ns {
		keys = append(keys, k)
	}
	return keys, nil
}

func (f *FlashBackend) nextFreeOffset() (int64, error) {
	off := int64(0)
	hdr := make([]byte, headerSize)
	for off+headerSize <= f.regionSize {
		if _, err := f.dev.ReadAt(hdr, f.regionBase+off); err != nil {
			return 0, err
		}
		nsLen := binary.LittleEndian.Uint16(hdr[0:2])
		keyLen := binary.LittleEndian.Uint16(hdr[2:4])
		valLen := binary.LittleEndian.Uint32(hdr[4:8])
		if nsLen == 0 {
			return off, nil
		}
		off += headerSize + int64(nsLen) + int64(keyLen) + int64(valLen)
	}
	return off, nil
}
