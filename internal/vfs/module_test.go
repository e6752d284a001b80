package vfs

import "testing"

func consoleModule() *Module {
	return &Module{
		Name:  "console",
		Mount: "/dev/console",
		Open: func(subpath string, f *File) error {
			f.Size = 0
			return nil
		},
		Read: func(f *File, buf []byte) (int, error) {
			return copy(buf, "hello"), nil
		},
		Write: func(f *File, buf []byte) (int, error) {
			return len(buf), nil
		},
	}
}

func TestLoadRejectsDuplicateMount(t *testing.T) {
	r := NewRegistry()
	if err := r.Load(consoleModule()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := r.Load(consoleModule()); err == nil {
		t.Fatal("expected ErrMountConflict registering the same mount twice")
	}
}

func TestLookupLongestPrefixWins(t *testing.T) {
	r := NewRegistry()
	r.Load(&Module{Mount: "/dev", Open: func(string, *File) error { return nil }})
	r.Load(&Module{Mount: "/dev/console", Name: "console", Open: func(string, *File) error { return nil }})

	m, subpath, err := r.lookup("/dev/console/foo")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if m.Name != "console" {
		t.Fatalf("expected longest-prefix match to pick console, got %q", m.Name)
	}
	if subpath != "/foo" {
		t.Fatalf("subpath = %q, want /foo", subpath)
	}
}

func TestLookupIsCaseInsensitive(t *testing.T) {
	r := NewRegistry()
	r.Load(&Module{Mount: "/Dev/Console", Name: "console", Open: func(string, *File) error { return nil }})

	m, _, err := r.lookup("/dev/console/bar")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if m.Name != "console" {
		t.Fatal("expected case-insensitive prefix match")
	}
}

func TestOpenAssignsIDsStartingAt257(t *testing.T) {
	r := NewRegistry()
	r.Load(consoleModule())

	f, err := r.Open(1, "/dev/console/x")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if f.ID != 257 {
		t.Fatalf("first FD id = %d, want 257", f.ID)
	}
}

func TestReadWriteRoundTrip(t *testing.T) {
	r := NewRegistry()
	r.Load(consoleModule())

	f, err := r.Open(1, "/dev/console")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	buf := make([]byte, 32)
	n, err := r.Write(1, f.ID, []byte("hi"))
	if err != nil || n != 2 {
		t.Fatalf("Write: n=%d err=%v", n, err)
	}

	n, err = r.Read(1, f.ID, buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(buf[:n]) != "hello" {
		t.Fatalf("Read = %q, want hello", buf[:n])
	}
}

func TestCloseRemovesDescriptor(t *testing.T) {
	r := NewRegistry()
	r.Load(consoleModule())

	f, _ := r.Open(1, "/dev/console")
	if err := r.Close(1, f.ID); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := r.Read(1, f.ID, make([]byte, 4)); err == nil {
		t.Fatal("expected read on a closed descriptor to fail")
	}
}

func TestOpenUnknownPathFails(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Open(1, "/nope"); err == nil {
		t.Fatal("expected ErrNotFound for an unmounted path")
	}
}

func TestListDirectoryEncoding(t *testing.T) {
	r := NewRegistry()
	r.Load(&Module{
		Mount: "/dir",
		Readdir: func(subpath string) ([]string, error) {
			return []string{"a", "bb"}, nil
		},
	})

	buf := make([]byte, 64)
	n, err := r.ListDirectory("/dir", buf)
	if err != nil {
		t.Fatalf("ListDirectory: %v", err)
	}
	if n != 4+2+3 {
		t.Fatalf("wrote %d bytes, want %d", n, 4+2+3)
	}
}

func TestListDirectoryTruncatesWholeEntriesOnly(t *testing.T) {
	r := NewRegistry()
	r.Load(&Module{
		Mount: "/dir",
		Readdir: func(subpath string) ([]string, error) {
			return []string{"short", "toolongtofitintheremainingbuffer"}, nil
		},
	})

	buf := make([]byte, 10)
	n, err := r.ListDirectory("/dir", buf)
	if err != nil {
		t.Fatalf("ListDirectory: %v", err)
	}
	if n != 4+6 {
		t.Fatalf("wrote %d bytes, want %d (only the first entry fits)", n, 4+6)
	}
}
