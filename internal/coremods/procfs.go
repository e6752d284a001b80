package coremods

import (
	"strconv"
	"strings"

	kerrors "corekernel/internal/kernel/errors"
	"corekernel/internal/sched"
	"corekernel/internal/vfs"
)

// Memory is the raw-pointer access seam /proc/<pid>/out needs to reach
// into a process's output backing store. Mirrors internal/trap's
// UserMemory shape so the same direct-pointer implementation can back
// both, without this package importing trap (which already imports
// vfs, and an import the other way would cycle).
type Memory interface {
	Read(ptr uintptr, n uint32) []byte
	Write(ptr uintptr, data []byte) uint32
}

type procFile struct {
	pid  uint16
	kind string // "out" or "state"
}

// parseProcPath splits "/<pid>/out" or "/<pid>/state" into its parts.
func parseProcPath(subpath string) (uint16, string, error) {
	trimmed := strings.TrimPrefix(subpath, "/")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 {
		return 0, "", kerrors.ErrNotFound
	}
	pid, err := strconv.ParseUint(parts[0], 10, 16)
	if err != nil {
		return 0, "", kerrors.ErrNotFound
	}
	if parts[1] != "out" && parts[1] != "state" {
		return 0, "", kerrors.ErrNotFound
	}
	return uint16(pid), parts[1], nil
}

func formatState(p *sched.Process) []byte {
	var b []byte
	b = append(b, "pid="...)
	b = strconv.AppendUint(b, uint64(p.PID), 10)
	b = append(b, " state="...)
	b = append(b, p.State.String()...)
	b = append(b, " exit="...)
	b = strconv.AppendInt(b, int64(p.ExitCode), 10)
	b = append(b, '\n')
	return b
}

// NewProcFS mounts /proc: a per-process stdout backing store at
// /proc/<pid>/out (filled by writes to that file and readable by any
// process that opens it, per spec.md §6; PRINTL output goes to the
// console and is not appended here) and a point-in-time status line at
// /proc/<pid>/state. Each Open decodes the subpath once and records
// which (pid, kind) the resulting FD refers to; Close forgets it.
func NewProcFS(s *sched.Scheduler, mem Memory) *vfs.Module {
	open := map[uint64]procFile{}

	return &vfs.Module{
		Name:  "procfs",
		Mount: "/proc",
		Open: func(subpath string, f *vfs.File) error {
			pid, kind, err := parseProcPath(subpath)
			if err != nil {
				return err
			}
			if s.Find(pid) == nil {
				return kerrors.ErrNotFound
			}
			open[f.ID] = procFile{pid: pid, kind: kind}
			return nil
		},
		Read: func(f *vfs.File, buf []byte) (int, error) {
			pf, ok := open[f.ID]
			if !ok {
				return 0, kerrors.ErrClosed
			}
			p := s.Find(pf.pid)
			if p == nil {
				return 0, kerrors.ErrNotFound
			}
			switch pf.kind {
			case "out":
				if f.Cursor >= p.OutputWritten {
					return 0, nil
				}
				n := uint32(len(buf))
				if remaining := p.OutputWritten - f.Cursor; uint64(n) > remaining {
					n = uint32(remaining)
				}
				data := mem.Read(p.OutputVA+uintptr(f.Cursor), n)
				copy(buf, data)
				f.Cursor += uint64(len(data))
				return len(data), nil
			case "state":
				text := formatState(p)
				if f.Cursor >= uint64(len(text)) {
					return 0, nil
				}
				n := copy(buf, text[f.Cursor:])
				f.Cursor += uint64(n)
				return n, nil
			default:
				return 0, kerrors.ErrDriverError
			}
		},
		Write: func(f *vfs.File, buf []byte) (int, error) {
			pf, ok := open[f.ID]
			if !ok || pf.kind != "out" {
				return 0, kerrors.ErrDriverError
			}
			p := s.Find(pf.pid)
			if p == nil {
				return 0, kerrors.ErrNotFound
			}
			space := p.OutputSize - p.OutputWritten
			data := buf
			if uint64(len(data)) > space {
				data = data[:space]
			}
			n := mem.Write(p.OutputVA+uintptr(p.OutputWritten), data)
			p.OutputWritten += uint64(n)
			return int(n), nil
		},
		Close: func(f *vfs.File) error {
			delete(open, f.ID)
			return nil
		},
	}
}
