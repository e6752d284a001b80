package vfs

import (
	"encoding/binary"

	kerrors "corekernel/internal/kernel/errors"
)

// ListDirectory resolves path to a module and encodes its Readdir result
// into the wire format DIR_LIST callers expect: a little-endian u32
// entry count followed by that many NUL-terminated names, back to back.
// If buf is too small to hold everything, as much as fits is written and
// the byte count actually written is returned; there is no partial-entry
// truncation, only whole entries are written.
func (r *Registry) ListDirectory(path string, buf []byte) (int, error) {
	m, subpath, err := r.lookup(path)
	if err != nil {
		return 0, err
	}
	if m.Readdir == nil {
		return 0, kerrors.ErrDriverError
	}

	names, err := m.Readdir(subpath)
	if err != nil {
		return 0, kerrors.ErrDriverError
	}

	if len(buf) < 4 {
		return 0, kerrors.ErrNoResources
	}

	written := 0
	countOffset := 0
	written += 4 // reserve space for the count header
	count := uint32(0)

	for _, name := range names {
		need := len(name) + 1
		if written+need > len(buf) {
			break
		}
		copy(buf[written:], name)
		buf[written+len(name)] = 0
		written += need
		count++
	}

	binary.LittleEndian.PutUint32(buf[countOffset:], count)
	return written, nil
}
