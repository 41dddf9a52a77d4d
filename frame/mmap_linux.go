//go:build linux

package frame

import (
	"os"
	"syscall"
)

// mmap maps the whole file read-only. Grounded on the teacher's
// cmd/sdb/mmap_linux.go, which does exactly this for query input files.
func mmap(f *os.File, size int64) ([]byte, bool) {
	mem, err := syscall.Mmap(int(f.Fd()), 0, int(size), syscall.PROT_READ, syscall.MAP_PRIVATE)
	if err != nil {
		return nil, false
	}
	return mem, true
}

func munmap(mem []byte) error {
	return syscall.Munmap(mem)
}
