package hw

import (
	"testing"
	"unsafe"
)

// fakeMailboxMMIO stands in for the VideoCore side of the mailbox: when
// the driver writes a request address, it reaches into the same buffer
// (real shared memory in this process, just as it would be on real
// hardware) and fills in a canned response before the driver polls for
// it.
type fakeMailboxMMIO struct {
	pending   uint32
	delivered bool
	fail      bool
}

func (f *fakeMailboxMMIO) Read32(addr uintptr) uint32 {
	switch addr & 0x3F {
	case mailboxStatus:
		if f.delivered {
			return 0
		}
		return mailboxEmpty
	case mailboxRead:
		f.delivered = false
		return f.pending
	}
	return 0
}

func (f *fakeMailboxMMIO) Write32(addr uintptr, val uint32) {
	if addr&0x3F != mailboxWrite {
		return
	}
	channel := val & 0xF
	bufAddr := uintptr(val &^ 0xF)
	buf := unsafe.Slice((*uint32)(unsafe.Pointer(bufAddr)), 35)

	if f.fail {
		buf[1] = 0x80000001
	} else {
		buf[1] = 0x80000000
		buf[19] = 0x3F000000 // allocated address (GPU alias bit set)
		buf[20] = 1024 * 768 * 4
		buf[24] = 1024 * 4
	}
	f.pending = uint32(bufAddr&0xFFFFFFF0) | channel
	f.delivered = true
}

func TestRequestFramebufferReturnsFirmwareValues(t *testing.T) {
	mmio := &fakeMailboxMMIO{}
	mb := NewMailbox(0xFE00B880, mmio)

	info, err := mb.RequestFramebuffer(1024, 768)
	if err != nil {
		t.Fatalf("RequestFramebuffer: %v", err)
	}
	if info.Width != 1024 || info.Height != 768 {
		t.Fatalf("dimensions = %dx%d, want 1024x768", info.Width, info.Height)
	}
	if info.Pitch != 1024*4 {
		t.Fatalf("Pitch = %d, want %d", info.Pitch, 1024*4)
	}
	if info.Addr != 0x3F000000&^0xC0000000 {
		t.Fatalf("Addr = 0x%x, want the alias bits stripped", info.Addr)
	}
	if info.Size != 1024*768*4 {
		t.Fatalf("Size = %d, want %d", info.Size, 1024*768*4)
	}
}

func TestRequestFramebufferPropagatesFirmwareFailure(t *testing.T) {
	mmio := &fakeMailboxMMIO{fail: true}
	mb := NewMailbox(0xFE00B880, mmio)

	if _, err := mb.RequestFramebuffer(640, 480); err == nil {
		t.Fatal("expected an error when the firmware rejects the request")
	}
}
