package pmm

import "unsafe"

// subpageHeader lives at the start of every frame that was allocated
// with full=false. Allocations below PageSize bump-allocate from the
// space after the header, with a singly-linked free list for returned
// blocks; allocations that don't fit chain to nextPage, which is lazily
// populated with a fresh single page set up as its own subpage arena.
type subpageHeader struct {
	nextPage  uintptr
	freeHead  uintptr
	bumpPtr   uintptr
	attrs     Attrs
	liveSize  uint64
}

type freeBlock struct {
	next uintptr
	size uint64
}

var headerSize = unsafe.Sizeof(subpageHeader{})

func headerAt(page uintptr) *subpageHeader {
	return (*subpageHeader)(unsafe.Pointer(page))
}

func initSubpageHeader(page uintptr, attrs Attrs) {
	h := headerAt(page)
	*h = subpageHeader{
		bumpPtr: page + headerSize,
		attrs:   attrs,
	}
}

// AllocSub carves size bytes, aligned to alignment, out of the subpage
// arena starting at page. It first looks for a free block big enough to
// reuse, then bump-allocates, then chains to a new page via alloc when
// the current one is full.
func (a *Allocator) AllocSub(page uintptr, size uint64, alignment uint64) (uintptr, error) {
	if alignment == 0 {
		alignment = 1
	}
	size = (size + alignment - 1) &^ (alignment - 1)

	h := headerAt(page)

	prev := uintptr(0)
	curr := h.freeHead
	for curr != 0 {
		blk := (*freeBlock)(unsafe.Pointer(curr))
		if blk.size >= size {
			if prev == 0 {
				h.freeHead = blk.next
			} else {
				(*freeBlock)(unsafe.Pointer(prev)).next = blk.next
			}
			h.liveSize += size
			zero(curr, size)
			return curr, nil
		}
		prev = curr
		curr = blk.next
	}

	h.bumpPtr = (h.bumpPtr + alignment - 1) &^ (alignment - 1)
	if h.bumpPtr+size > page+PageSize {
		if h.nextPage == 0 {
			next, err := a.Alloc(PageSize, LevelKernel, h.attrs, false)
			if err != nil {
				return 0, err
			}
			h.nextPage = next
		}
		return a.AllocSub(h.nextPage, size, alignment)
	}

	result := h.bumpPtr
	h.bumpPtr += size
	h.liveSize += size
	zero(result, size)
	return result, nil
}

// FreeSub returns a previously-allocated subpage block to its page's free
// list. The page itself is never released back to the frame allocator
// here; pages only accumulate free blocks.
func (a *Allocator) FreeSub(page, ptr uintptr, size uint64) {
	zero(ptr, size)
	h := headerAt(page)
	blk := (*freeBlock)(unsafe.Pointer(ptr))
	blk.size = size
	blk.next = h.freeHead
	h.freeHead = ptr
	h.liveSize -= size
}

func zero(addr uintptr, size uint64) {
	p := (*[1 << 30]byte)(unsafe.Pointer(addr))[:size:size]
	for i := range p {
		p[i] = 0
	}
}
