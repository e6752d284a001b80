package virtio

// Notifier performs the MMIO write that pokes the device after a
// descriptor chain has been published to the available ring.
type Notifier interface {
	Write32(addr uintptr, val uint32)
}

// Spin is the busy-wait primitive SendAndWait uses while polling
// used.idx. Production wiring passes a tight loop with a yield hint;
// tests pass a counter that returns false once a bound is hit, so a
// test can assert SendAndWait gives up rather than hanging forever.
//
// spec.md §9 leaves interrupt-driven completion as an open question for
// the NIC/block specs; this transport implements only the documented
// default, a naive spin.
type Spin func(attempt int) bool

// SendAndWait chains bufs onto q, publishes them to the available ring,
// notifies the device at notifyAddr with notifyValue, then spins until
// a used-ring entry appears or spin returns false. Returns the
// completed buffer's reported length and whether it completed at all.
func SendAndWait(q *Virtqueue, bufs []ChainEntry, notify Notifier, notifyAddr uintptr, notifyValue uint32, spin Spin) (length uint32, ok bool) {
	head := q.Chain(bufs)
	q.PublishAvail(head)
	notify.Write32(notifyAddr, notifyValue)

	attempt := 0
	for {
		if _, length, done := q.PopUsed(); done {
			return length, true
		}
		if spin != nil && !spin(attempt) {
			return 0, false
		}
		attempt++
	}
}
