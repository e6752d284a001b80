package vfs

import kerrors "corekernel/internal/kernel/errors"

// Open resolves path to a module, invokes its Open hook on the
// remaining sub-path, and records the resulting descriptor in pid's
// open-file list.
func (r *Registry) Open(pid uint16, path string) (*File, error) {
	m, subpath, err := r.lookup(path)
	if err != nil {
		return nil, err
	}
	if m.Open == nil {
		return nil, kerrors.ErrDriverError
	}

	f := &File{ID: r.nextFDID}
	r.nextFDID++

	if err := m.Open(subpath, f); err != nil {
		return nil, kerrors.ErrDriverError
	}

	r.openByPID[pid] = append(r.openByPID[pid], openEntry{file: f, module: m})
	return f, nil
}

func (r *Registry) findOpen(pid uint16, fdID uint64) (*openEntry, error) {
	entries := r.openByPID[pid]
	for i := range entries {
		if entries[i].file.ID == fdID {
			return &entries[i], nil
		}
	}
	return nil, kerrors.ErrClosed
}

// Read clamps n to the descriptor's remaining size and calls the owning
// module's Read hook. The module is expected to leave f.Cursor alone
// unless it chooses to advance it itself.
func (r *Registry) Read(pid uint16, fdID uint64, buf []byte) (int, error) {
	entry, err := r.findOpen(pid, fdID)
	if err != nil {
		return 0, err
	}
	if entry.module.Read == nil {
		return 0, kerrors.ErrDriverError
	}

	n := len(buf)
	if entry.file.Size > 0 {
		remaining := entry.file.Size - entry.file.Cursor
		if uint64(n) > remaining {
			n = int(remaining)
		}
	}
	if n < 0 {
		n = 0
	}

	read, err := entry.module.Read(entry.file, buf[:n])
	if err != nil {
		return 0, kerrors.ErrDriverError
	}
	return read, nil
}

// Write calls the owning module's Write hook. Notifying a pipe layer of
// newly appended data is left to the module itself (out of scope here;
// no pipe module is implemented by the core).
func (r *Registry) Write(pid uint16, fdID uint64, buf []byte) (int, error) {
	entry, err := r.findOpen(pid, fdID)
	if err != nil {
		return 0, err
	}
	if entry.module.Write == nil {
		return 0, kerrors.ErrDriverError
	}
	written, err := entry.module.Write(entry.file, buf)
	if err != nil {
		return 0, kerrors.ErrDriverError
	}
	return written, nil
}

// Close removes the descriptor from pid's open-file list and invokes the
// module's Close hook if it has one.
func (r *Registry) Close(pid uint16, fdID uint64) error {
	entries := r.openByPID[pid]
	for i := range entries {
		if entries[i].file.ID == fdID {
			m := entries[i].module
			f := entries[i].file
			r.openByPID[pid] = append(entries[:i], entries[i+1:]...)
			if m.Close != nil {
				return m.Close(f)
			}
			return nil
		}
	}
	return kerrors.ErrClosed
}

// CloseAll tears down every descriptor pid still has open, used when a
// process exits.
func (r *Registry) CloseAll(pid uint16) {
	entries := r.openByPID[pid]
	for _, e := range entries {
		if e.module.Close != nil {
			e.module.Close(e.file)
		}
	}
	delete(r.openByPID, pid)
}
