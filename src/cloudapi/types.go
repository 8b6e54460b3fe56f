package cloudapi

import (
	"context"
	"errors"
	"time"
)

// DeviceMapping ties a block-device name on an instance to the backing
// volume identifier. Order matters: providers report devices in attachment
// order and snapshot naming depends on it being stable.
type DeviceMapping struct {
	DeviceName string
	VolumeID   string
}

// InstanceInfo exposes the subset of compute-instance metadata needed to
// enumerate its disks.
type InstanceInfo struct {
	ID             string
	Location       string
	RootDeviceName string
	// OSDiskName is the provider-side name of the OS disk, used as a
	// secondary lookup key when the root device carries no volume id.
	OSDiskName string
	Devices    []DeviceMapping
}

// VolumeInfo describes a standalone managed disk / volume.
type VolumeInfo struct {
	ID       string
	Name     string
	Location string
	SKU      string
}

// SnapshotRecord is a provider-side snapshot as read back from the API.
// Records are immutable once created; the only lifecycle transition after
// creation is deletion.
type SnapshotRecord struct {
	ID             string
	Name           string
	SourceVolumeID string
	Incremental    bool
	SKU            string
	Created        time.Time
	Tags           map[string]string
}

// CreateRequest describes a single snapshot create call.
type CreateRequest struct {
	SourceVolumeID string
	Name           string
	Location       string
	Tags           map[string]string
	Incremental    bool
	// SKU, when non-empty, pins the snapshot storage class. Providers
	// without a snapshot SKU concept ignore it.
	SKU string
}

// Client is a narrow interface over a cloud provider's block-storage API.
// Keep it small and focused on what we actually need so it stays mockable.
type Client interface {
	// Ping verifies the provider is reachable and credentials work.
	// Called once at startup; any error is fatal to the run.
	Ping(ctx context.Context) error

	FindInstance(ctx context.Context, id, location string) (InstanceInfo, error)
	FindVolume(ctx context.Context, id, location string) (VolumeInfo, error)

	CreateSnapshot(ctx context.Context, req CreateRequest) (string, error)
	ListSnapshots(ctx context.Context, tagFilter map[string]string) ([]SnapshotRecord, error)
	DeleteSnapshot(ctx context.Context, id string) error
}

// NotFoundError reports a missing provider resource.
type NotFoundError struct{ Resource, Name string }

func (e *NotFoundError) Error() string { return e.Resource + " not found: " + e.Name }

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
