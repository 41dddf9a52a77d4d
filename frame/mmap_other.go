//go:build !linux

package frame

import "os"

// mmap is unavailable on this platform; Open falls back to a plain read.
func mmap(f *os.File, size int64) ([]byte, bool) { return nil, false }

func munmap(mem []byte) error { return nil }
