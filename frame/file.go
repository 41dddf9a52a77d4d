package frame

import (
	"fmt"
	"os"
)

// File is a memory-mapped (or, on unsupported platforms, fully read)
// view of a demo file. §5: "I/O is done once by memory-mapping the
// entire file."
type File struct {
	data   []byte
	mapped bool
	f      *os.File
	Header Header
}

// Open memory-maps path and validates its file header.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening demo file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat demo file: %w", err)
	}
	data, mapped := mmap(f, info.Size())
	if !mapped {
		data, err = os.ReadFile(path)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("reading demo file: %w", err)
		}
	}
	hdr, err := ParseHeader(data)
	if err != nil {
		if mapped {
			munmap(data)
		}
		f.Close()
		return nil, err
	}
	return &File{data: data, mapped: mapped, f: f, Header: hdr}, nil
}

// Bytes returns the full file contents, including the 16-byte header.
func (d *File) Bytes() []byte { return d.data }

// Close releases the mapping (or the read buffer) and the underlying file
// descriptor.
func (d *File) Close() error {
	if d.mapped {
		if err := munmap(d.data); err != nil {
			d.f.Close()
			return err
		}
	}
	return d.f.Close()
}
