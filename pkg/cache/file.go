package cache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/zstd"
)

// FileStore keeps one zstd-compressed file per key under Dir. Each file
// starts with an 8-byte big-endian expiry in Unix nanoseconds.
type FileStore struct {
	Dir string
	now func() time.Time
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir, now: time.Now}
}

func (s *FileStore) path(key string) string {
	h := sha256.Sum256([]byte(key))
	return filepath.Join(s.Dir, hex.EncodeToString(h[:]))
}

func (s *FileStore) Get(_ context.Context, key string) (string, bool, error) {
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "reading cache file")
	}
	if len(data) < 8 {
		return "", false, errors.New("cache file is truncated")
	}

	expires := time.Unix(0, int64(binary.BigEndian.Uint64(data[:8])))
	if !s.now().Before(expires) {
		_ = os.Remove(s.path(key))
		return "", false, nil
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return "", false, errors.Wrap(err, "creating zstd decoder")
	}
	defer dec.Close()
	body, err := dec.DecodeAll(data[8:], nil)
	if err != nil {
		return "", false, errors.Wrap(err, "decompressing cache file")
	}
	return string(body), true, nil
}

func (s *FileStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return errors.Wrap(err, "creating cache dir")
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return errors.Wrap(err, "creating zstd encoder")
	}
	defer enc.Close()

	var buf bytes.Buffer
	var header [8]byte
	binary.BigEndian.PutUint64(header[:], uint64(s.now().Add(ttl).UnixNano()))
	buf.Write(header[:])
	buf.Write(enc.EncodeAll([]byte(value), nil))

	// Write to a temp file first so readers never see a partial entry.
	tmp, err := os.CreateTemp(s.Dir, ".tmp-*")
	if err != nil {
		return errors.Wrap(err, "creating cache file")
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.Wrap(err, "writing cache file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, "writing cache file")
	}
	return errors.Wrap(os.Rename(tmp.Name(), s.path(key)), "writing cache file")
}

// Clear removes every cached entry.
func (s *FileStore) Clear() error {
	return os.RemoveAll(s.Dir)
}
