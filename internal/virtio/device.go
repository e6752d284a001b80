package virtio

import kerrors "corekernel/internal/kernel/errors"

// VirtIO PCI common configuration structure register offsets,
// virtio-v1.1 §4.1.4.3. Grounded on the teacher's virtio_gpu.go
// constant block, which hard-codes this same layout for its one GPU
// device; generalized here into the transport every device type shares.
const (
	commonDeviceFeatureSelect = 0x00
	commonDeviceFeature       = 0x04
	commonDriverFeatureSelect = 0x08
	commonDriverFeature       = 0x0C
	commonMSIXConfig          = 0x10
	commonNumQueues           = 0x12
	commonDeviceStatus        = 0x14
	commonConfigGeneration    = 0x15
	commonQueueSelect         = 0x16
	commonQueueSize           = 0x18
	commonQueueMSIXVector     = 0x1A
	commonQueueEnable         = 0x1C
	commonQueueNotifyOff      = 0x1E
	commonQueueDescLow        = 0x20
	commonQueueDescHigh       = 0x24
	commonQueueAvailLow       = 0x28
	commonQueueAvailHigh      = 0x2C
	commonQueueUsedLow        = 0x30
	commonQueueUsedHigh       = 0x34
)

// Device status bits, virtio-v1.1 §2.1.
const (
	StatusAcknowledge      = 1 << 0
	StatusDriver           = 1 << 1
	StatusFailed           = 1 << 2
	StatusFeaturesOK       = 1 << 3
	StatusDriverOK         = 1 << 4
	StatusDeviceNeedsReset = 1 << 6
)

// FeatureNotificationData is bit 38 of the VirtIO feature bitmap
// (VIRTIO_F_NOTIFICATION_DATA); when negotiated, the notify write's
// value is queue_notify_data instead of queue_select (spec.md §4.7).
const FeatureNotificationData = uint64(1) << 38

// CommonCfg is the MMIO seam over one device's Common Configuration
// capability region. The real implementation is backed by
// internal/arch/arm64/reg's Read32/Write32 at commonCfgBase+offset;
// tests supply an in-memory fake.
type CommonCfg interface {
	Read8(offset uint32) uint8
	Read16(offset uint32) uint16
	Read32(offset uint32) uint32
	Write8(offset uint32, val uint8)
	Write16(offset uint32, val uint16)
	Write32(offset uint32, val uint32)
}

func readFeatures(cfg CommonCfg) uint64 {
	cfg.Write32(commonDeviceFeatureSelect, 0)
	lo := cfg.Read32(commonDeviceFeature)
	cfg.Write32(commonDeviceFeatureSelect, 1)
	hi := cfg.Read32(commonDeviceFeature)
	return uint64(lo) | uint64(hi)<<32
}

func writeFeatures(cfg CommonCfg, features uint64) {
	cfg.Write32(commonDriverFeatureSelect, 0)
	cfg.Write32(commonDriverFeature, uint32(features))
	cfg.Write32(commonDriverFeatureSelect, 1)
	cfg.Write32(commonDriverFeature, uint32(features>>32))
}

// QueueAddrs is the set of physical addresses a Virtqueue's three
// regions live at; the caller (internal/boot, a device driver) owns the
// frame allocation and hands the addresses in.
type QueueAddrs struct {
	Size            uint16
	DescBase        uint64
	AvailBase       uint64
	UsedBase        uint64
}

// Device holds the negotiated state of one probed VirtIO device: the
// feature mask that stuck, and the notify geometry queues need to
// compute their doorbell address.
type Device struct {
	cfg CommonCfg

	NegotiatedFeatures  uint64
	NotifyOffMultiplier uint32
	NotifyCfgBase       uintptr
}

// Probe runs the VirtIO 1.x device initialization handshake (spec.md
// §4.7 steps 2–5): reset, ACKNOWLEDGE, DRIVER, feature negotiation
// against featureMask, FEATURES_OK (verified to stick), one
// setupQueue call per entry in queues, then DRIVER_OK.
//
// Any missing required capability (handled by the caller via
// FindVirtIOCapabilities before Probe is even called), any queue whose
// size the device reports as 0, or FEATURES_OK failing to stick is
// fatal: Probe returns an error and the caller must not register the
// owning module, per spec.md §4.7's failure model.
func Probe(cfg CommonCfg, notifyCfgBase uintptr, notifyOffMultiplier uint32, featureMask uint64, queues []QueueAddrs) (*Device, error) {
	cfg.Write8(commonDeviceStatus, 0)
	cfg.Write8(commonDeviceStatus, StatusAcknowledge)
	cfg.Write8(commonDeviceStatus, StatusAcknowledge|StatusDriver)

	features := readFeatures(cfg) & featureMask
	writeFeatures(cfg, features)

	status := uint8(StatusAcknowledge | StatusDriver | StatusFeaturesOK)
	cfg.Write8(commonDeviceStatus, status)
	if cfg.Read8(commonDeviceStatus)&StatusFeaturesOK == 0 {
		cfg.Write8(commonDeviceStatus, StatusFailed)
		return nil, kerrors.ErrDriverError
	}

	dev := &Device{
		cfg:                 cfg,
		NegotiatedFeatures:  features,
		NotifyOffMultiplier: notifyOffMultiplier,
		NotifyCfgBase:       notifyCfgBase,
	}

	for i, q := range queues {
		if err := dev.setupQueue(uint16(i), q); err != nil {
			cfg.Write8(commonDeviceStatus, StatusFailed)
			return nil, err
		}
	}

	cfg.Write8(commonDeviceStatus, status|StatusDriverOK)
	return dev, nil
}

// setupQueue selects queueIndex, confirms the device actually offers a
// nonzero queue_size (a zero size for a queue the driver needs is
// fatal, per spec.md §4.7), publishes the three ring addresses and
// enables the queue.
func (d *Device) setupQueue(queueIndex uint16, q QueueAddrs) error {
	d.cfg.Write16(commonQueueSelect, queueIndex)
	if d.cfg.Read16(commonQueueSize) == 0 {
		return kerrors.ErrDriverError
	}
	d.cfg.Write16(commonQueueSize, q.Size)

	d.cfg.Write32(commonQueueDescLow, uint32(q.DescBase))
	d.cfg.Write32(commonQueueDescHigh, uint32(q.DescBase>>32))
	d.cfg.Write32(commonQueueAvailLow, uint32(q.AvailBase))
	d.cfg.Write32(commonQueueAvailHigh, uint32(q.AvailBase>>32))
	d.cfg.Write32(commonQueueUsedLow, uint32(q.UsedBase))
	d.cfg.Write32(commonQueueUsedHigh, uint32(q.UsedBase>>32))

	d.cfg.Write16(commonQueueEnable, 1)
	return nil
}

func (d *Device) SelectQueue(queueIndex uint16) {
	d.cfg.Write16(commonQueueSelect, queueIndex)
}

// QueueNotifyOff returns the device-reported notify_off for the
// currently selected queue; callers select the queue first via
// SelectQueue.
func (d *Device) QueueNotifyOff() uint16 {
	return d.cfg.Read16(commonQueueNotifyOff)
}

// NotifyValue returns the 32-bit value a notify write should carry:
// queueIndex normally, or the device's queue_notify_data when
// VIRTIO_F_NOTIFICATION_DATA was negotiated (spec.md §4.7).
func (d *Device) NotifyValue(queueIndex uint16, notifyData uint16) uint32 {
	if d.NegotiatedFeatures&FeatureNotificationData != 0 {
		return uint32(notifyData)
	}
	return uint32(queueIndex)
}
