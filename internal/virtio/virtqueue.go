package virtio

import "unsafe"

// Descriptor flags, virtio-v1.1 §2.7.5.
const (
	DescFNext  = 1 << 0 // chained to another descriptor via Next
	DescFWrite = 1 << 1 // device writes into this buffer (vs. reads from it)
)

// Desc is one entry of the descriptor table, byte-for-byte the VirtIO
// wire layout so it can be overlaid directly onto a page frame.
type Desc struct {
	Addr  uint64
	Len   uint32
	Flags uint16
	Next  uint16
}

const descSize = unsafe.Sizeof(Desc{})

// Barrier abstracts the DMB-ISHST/DMB-ISHLD pair spec.md §5 requires
// around publishing avail.idx and reading used.idx. Production wiring
// passes the arm64 package's barrier primitives; tests pass no-ops,
// since plain Go memory order is already sequential on a single
// goroutine.
type Barrier func()

// Virtqueue is one VirtIO descriptor ring: the fixed-size descriptor
// table plus the avail/used rings, all allocated from page frames by
// the caller (spec.md §3) and addressed here by raw pointer so the
// layout matches what the device's DMA engine expects.
type Virtqueue struct {
	Size uint16

	descBase  uintptr
	availBase uintptr
	usedBase  uintptr

	notifyAddr          uintptr
	notifyOffMultiplier uint32

	lastUsedIdx uint16

	storeBarrier Barrier
	loadBarrier  Barrier
}

// avail/used ring layout offsets, virtio-v1.1 §2.7.6/§2.7.8: a 2-byte
// flags field, a 2-byte idx field, then Size 2-byte (avail) or 8-byte
// (used) ring entries.
const (
	ringFlagsOffset = 0
	ringIdxOffset   = 2
	ringDataOffset  = 4

	usedElemSize = 8 // {id uint32; len uint32}
)

// NewVirtqueue wraps three already-allocated, page-aligned regions as a
// virtqueue of the given size. descBase must have room for size*16
// bytes, availBase for 4+size*2 bytes, usedBase for 4+size*8 bytes.
func NewVirtqueue(size uint16, descBase, availBase, usedBase uintptr, store, load Barrier) *Virtqueue {
	if store == nil {
		store = func() {}
	}
	if load == nil {
		load = func() {}
	}
	return &Virtqueue{
		Size:         size,
		descBase:     descBase,
		availBase:    availBase,
		usedBase:     usedBase,
		storeBarrier: store,
		loadBarrier:  load,
	}
}

func (q *Virtqueue) descAt(i uint16) *Desc {
	return (*Desc)(unsafe.Pointer(q.descBase + uintptr(i)*descSize))
}

func (q *Virtqueue) availIdxPtr() *uint16 {
	return (*uint16)(unsafe.Pointer(q.availBase + ringIdxOffset))
}

func (q *Virtqueue) availRingAt(i uint16) *uint16 {
	return (*uint16)(unsafe.Pointer(q.availBase + ringDataOffset + uintptr(i)*2))
}

func (q *Virtqueue) usedIdxPtr() *uint16 {
	return (*uint16)(unsafe.Pointer(q.usedBase + ringIdxOffset))
}

func (q *Virtqueue) usedElemAt(i uint16) (id, length uint32) {
	base := q.usedBase + ringDataOffset + uintptr(i)*usedElemSize
	return *(*uint32)(unsafe.Pointer(base)), *(*uint32)(unsafe.Pointer(base + 4))
}

// SetDesc writes descriptor i directly.
func (q *Virtqueue) SetDesc(i uint16, addr uint64, length uint32, flags, next uint16) {
	*q.descAt(i) = Desc{Addr: addr, Len: length, Flags: flags, Next: next}
}

type ChainEntry struct {
	Addr  uint64
	Len   uint32
	Write bool
}

// Chain writes len(bufs) descriptors starting at index 0, linking each
// to the next with DescFNext, and returns the head index (always 0 for
// a freshly built chain). Each entry in bufs is {addr, len, write}.
func (q *Virtqueue) Chain(bufs []ChainEntry) uint16 {
	for i, b := range bufs {
		flags := uint16(0)
		if b.Write {
			flags |= DescFWrite
		}
		next := uint16(0)
		if i < len(bufs)-1 {
			flags |= DescFNext
			next = uint16(i + 1)
		}
		q.SetDesc(uint16(i), b.Addr, b.Len, flags, next)
	}
	return 0
}

// PublishAvail appends headIdx to the available ring and advances
// avail.idx, with the store barrier spec.md §5 requires before the
// device (which may be polling or woken by MMIO) observes the new
// entry.
func (q *Virtqueue) PublishAvail(headIdx uint16) {
	idx := *q.availIdxPtr()
	*q.availRingAt(idx % q.Size) = headIdx
	q.storeBarrier()
	*q.availIdxPtr() = idx + 1
}

// HasUsed reports whether the device has completed a buffer the driver
// hasn't consumed yet, issuing the load barrier before the read per
// spec.md §5.
func (q *Virtqueue) HasUsed() bool {
	q.loadBarrier()
	return *q.usedIdxPtr() != q.lastUsedIdx
}

// PopUsed consumes the next completed used-ring entry, if any.
func (q *Virtqueue) PopUsed() (id, length uint32, ok bool) {
	if !q.HasUsed() {
		return 0, 0, false
	}
	id, length = q.usedElemAt(q.lastUsedIdx % q.Size)
	q.lastUsedIdx++
	return id, length, true
}

// NotifyAddress computes the MMIO address a PublishAvail-then-notify
// sequence writes to, per spec.md §4.7: notify_cfg base plus
// queue_notify_off * notify_off_multiplier.
func NotifyAddress(notifyCfgBase uintptr, queueNotifyOff uint16, notifyOffMultiplier uint32) uintptr {
	return notifyCfgBase + uintptr(queueNotifyOff)*uintptr(notifyOffMultiplier)
}
