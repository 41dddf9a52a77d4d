package compr

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/klauspost/compress/zstd"
)

var (
	zstdOnce    sync.Once
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
	zstdInitErr error
)

func initZstd() {
	zstdEncoder, zstdInitErr = zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
	if zstdInitErr != nil {
		return
	}
	zstdDecoder, zstdInitErr = zstd.NewReader(nil, zstd.WithDecoderConcurrency(runtime.GOMAXPROCS(0)))
}

// EncodeZstd compresses src for the on-disk result cache (cache package).
// Unlike the frame/string-table Snappy path, the cache is written once and
// read back whole, so there is no need for the overlap-avoiding tricks
// used in DecodeSnappyInto.
func EncodeZstd(src []byte) ([]byte, error) {
	zstdOnce.Do(initZstd)
	if zstdInitErr != nil {
		return nil, fmt.Errorf("compr: zstd init: %w", zstdInitErr)
	}
	return zstdEncoder.EncodeAll(src, nil), nil
}

// DecodeZstd decompresses a result-cache entry produced by EncodeZstd.
func DecodeZstd(src []byte) ([]byte, error) {
	zstdOnce.Do(initZstd)
	if zstdInitErr != nil {
		return nil, fmt.Errorf("compr: zstd init: %w", zstdInitErr)
	}
	out, err := zstdDecoder.DecodeAll(src, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errDecompression, err)
	}
	return out, nil
}
