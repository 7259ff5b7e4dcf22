// SPDX-License-Identifier: MPL-2.0

package fetch

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"

	"github.com/mesozoic/mesozoic/pkg/load"
)

// entryExt is the file extension of disk cache entries.
const entryExt = ".cbor"

var (
	encMode cbor.EncMode
	decMode cbor.DecMode

	// EncodeAll and DecodeAll are safe for concurrent use.
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("fetch: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("fetch: CBOR decoder initialization failed: " + err.Error())
	}

	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("fetch: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("fetch: zstd decoder initialization failed: " + err.Error())
	}
}

type (
	// envelope is the on-disk form of a cached response.
	envelope struct {
		URL       string            `cbor:"url"`
		Status    int               `cbor:"status"`
		Headers   map[string]string `cbor:"headers"`
		Body      []byte            `cbor:"body"`
		FetchedAt int64             `cbor:"fetched_at"`
	}

	// diskStore persists responses below dir, one file per requested URL.
	diskStore struct {
		dir string
	}
)

// entryPath returns the cache file for rawURL.
func (s *diskStore) entryPath(rawURL string) string {
	sum := blake3.Sum256([]byte(rawURL))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:])+entryExt)
}

// get returns the cached response for rawURL. A missing entry is (nil, nil).
func (s *diskStore) get(rawURL string) (*load.Fetched, error) {
	data, err := os.ReadFile(s.entryPath(rawURL))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache entry: %w", err)
	}

	var env envelope
	if err := decMode.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decoding cache entry: %w", err)
	}
	body, err := zstdDecoder.DecodeAll(env.Body, nil)
	if err != nil {
		return nil, fmt.Errorf("decompressing cache entry: %w", err)
	}

	return &load.Fetched{
		URL:     env.URL,
		Status:  env.Status,
		Headers: env.Headers,
		Body:    body,
	}, nil
}

// put writes f as the entry for rawURL. The file is replaced atomically.
func (s *diskStore) put(rawURL string, f *load.Fetched) error {
	data, err := encMode.Marshal(envelope{
		URL:       f.URL,
		Status:    f.Status,
		Headers:   f.Headers,
		Body:      zstdEncoder.EncodeAll(f.Body, nil),
		FetchedAt: time.Now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, "entry-*.tmp")
	if err != nil {
		return fmt.Errorf("creating cache entry: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing cache entry: %w", err)
	}
	if err := os.Rename(tmpName, s.entryPath(rawURL)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("committing cache entry: %w", err)
	}
	return nil
}
