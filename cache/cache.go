// Package cache implements the on-disk result cache (SPEC_FULL §12): a
// zstd-compressed snapshot of a DemoOutput, keyed by a SipHash-2-4 digest
// of the demo file's content plus the requested prop/event set, stored
// under a directory the caller passes to Open. It is a pure
// optimization: a cache miss falls back to a full parse transparently, and
// writing to the cache never changes what a caller observes from Parse.
package cache

import (
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dchest/siphash"

	"github.com/csdemo/csdemo/compr"
)

// sipKey is a fixed, unexported application key: the cache is a local,
// single-user store, not a MAC over untrusted input, so a constant key is
// sufficient to get SipHash's fast, well-distributed digest without
// managing key material.
var sipKey = []byte("csdemo-result-cache-key-16bytes")

// Key identifies one cache entry: the SipHash-2-4 digest of the demo
// file's bytes, mixed with the canonicalized wanted-props/events set so
// two different -prop selections over the same file don't collide.
type Key string

// NewKey computes the cache key for demoBytes and the given wanted names.
func NewKey(demoBytes []byte, wantedProps, wantedEvents []string) Key {
	h := siphash.New(sipKey)
	h.Write(demoBytes)
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(wantedProps, ",")))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(wantedEvents, ",")))
	return Key(hex.EncodeToString(uint64ToBytes(h.Sum64())))
}

func uint64ToBytes(v uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return b
}

// Store reads and writes cache entries under dir.
type Store struct {
	dir string
}

// Open returns a Store rooted at dir, creating it if necessary.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: creating %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(key Key) string {
	return filepath.Join(s.dir, string(key)+".cache")
}

// Load reads and decompresses the entry for key into dst via encoding/gob,
// the teacher's ion package having been out of scope to adapt for this
// narrow, internal-only encoding (see DESIGN.md). Returns (false, nil) on
// a cache miss, never an error, so callers can always fall back to parsing.
func (s *Store) Load(key Key, dst any) (bool, error) {
	raw, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache: reading entry: %w", err)
	}
	decompressed, err := compr.DecodeZstd(raw)
	if err != nil {
		return false, fmt.Errorf("cache: decompressing entry: %w", err)
	}
	dec := gob.NewDecoder(strings.NewReader(string(decompressed)))
	if err := dec.Decode(dst); err != nil {
		return false, fmt.Errorf("cache: decoding entry: %w", err)
	}
	return true, nil
}

// Store gob-encodes src, zstd-compresses it, and writes it under key.
func (s *Store) Store(key Key, src any) error {
	var buf strings.Builder
	if err := gob.NewEncoder(&buf).Encode(src); err != nil {
		return fmt.Errorf("cache: encoding entry: %w", err)
	}
	compressed, err := compr.EncodeZstd([]byte(buf.String()))
	if err != nil {
		return fmt.Errorf("cache: compressing entry: %w", err)
	}
	if err := os.WriteFile(s.path(key), compressed, 0o644); err != nil {
		return fmt.Errorf("cache: writing entry: %w", err)
	}
	return nil
}
