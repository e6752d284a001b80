// Package vfs implements the core's path-addressed module registry and
// the file/descriptor layer that dispatches open/read/write/readdir
// calls to whichever module's mount prefix matches.
package vfs

import (
	"strings"

	kerrors "corekernel/internal/kernel/errors"
)

// File is the descriptor state a module operates on. The id is assigned
// once at open time and never changes; size and cursor are the module's
// to update.
type File struct {
	ID     uint64
	Size   uint64
	Cursor uint64
}

// Module is a registered subsystem. Any hook may be nil; dispatch treats
// a nil hook as ErrDriverError for that operation.
type Module struct {
	Name    string
	Mount   string
	Version uint64

	Init  func() error
	Fini  func() error
	Open  func(subpath string, f *File) error
	Read  func(f *File, buf []byte) (int, error)
	Write func(f *File, buf []byte) (int, error)
	Close func(f *File) error

	// Readdir returns directory entry names for subpath. The registry
	// encodes them into the wire format expected by DIR_LIST.
	Readdir func(subpath string) ([]string, error)

	next *Module
}

// Registry holds the module list (registration order, most recent
// first) and the per-process open-file tables.
type Registry struct {
	head *Module

	nextFDID uint64
	openByPID map[uint16][]openEntry
}

type openEntry struct {
	file   *File
	module *Module
}

// reservedFDStart is the first FD id the registry ever hands out; ids
// below this are reserved for future fixed-purpose descriptors (stdio
// equivalents) the core does not currently define.
const reservedFDStart = 257

// NewRegistry returns an empty module registry.
func NewRegistry() *Registry {
	return &Registry{
		nextFDID:  reservedFDStart,
		openByPID: make(map[uint16][]openEntry),
	}
}

// Load runs m.Init and, on success, links m at the front of the module
// list. Returns ErrMountConflict if another module already owns the
// exact same mount prefix.
func (r *Registry) Load(m *Module) error {
	for cur := r.head; cur != nil; cur = cur.next {
		if strings.EqualFold(cur.Mount, m.Mount) {
			return kerrors.ErrMountConflict
		}
	}
	if m.Init != nil {
		if err := m.Init(); err != nil {
			return err
		}
	}
	m.next = r.head
	r.head = m
	return nil
}

// Unload runs m.Fini and unlinks it from the module list.
func (r *Registry) Unload(m *Module) error {
	if m.Fini != nil {
		if err := m.Fini(); err != nil {
			return err
		}
	}
	var prev *Module
	for cur := r.head; cur != nil; cur = cur.next {
		if cur == m {
			if prev == nil {
				r.head = cur.next
			} else {
				prev.next = cur.next
			}
			return nil
		}
		prev = cur
	}
	return kerrors.ErrNotFound
}

// lookup performs longest-prefix-wins, case-insensitive matching against
// every module's mount and returns the matching module plus the
// remaining sub-path (the part of path after the mount prefix).
func (r *Registry) lookup(path string) (*Module, string, error) {
	var (
		best       *Module
		bestLen    int
		bestSuffix string
	)
	for cur := r.head; cur != nil; cur = cur.next {
		mount := cur.Mount
		if len(path) < len(mount) {
			continue
		}
		if !strings.EqualFold(path[:len(mount)], mount) {
			continue
		}
		if len(mount) > bestLen {
			best = cur
			bestLen = len(mount)
			bestSuffix = path[len(mount):]
		}
	}
	if best == nil {
		return nil, "", kerrors.ErrNotFound
	}
	return best, bestSuffix, nil
}
