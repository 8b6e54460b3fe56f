package cloudapi

import (
	"context"
	"fmt"
	"sort"
)

// FakeClient is an in-memory implementation for unit tests.
type FakeClient struct {
	PingErr error

	InstancesMap map[string]InstanceInfo
	VolumesMap   map[string]VolumeInfo
	SnapshotsMap map[string]SnapshotRecord

	// FailIncremental makes incremental creates fail for the given source
	// volume ids, mimicking a SKU-compatibility rejection.
	FailIncremental map[string]bool
	// FailCreate makes every create for the given source volume fail,
	// incremental or full.
	FailCreate map[string]bool
	// DeleteErrs injects per-snapshot deletion failures.
	DeleteErrs map[string]error

	// CreateCalls records every CreateSnapshot invocation in order.
	CreateCalls []CreateRequest
	// DeletedIDs records successful deletions in order.
	DeletedIDs []string

	nextID int
}

func NewFake() *FakeClient {
	return &FakeClient{
		InstancesMap: map[string]InstanceInfo{},
		VolumesMap:   map[string]VolumeInfo{},
		SnapshotsMap: map[string]SnapshotRecord{},
	}
}

func (f *FakeClient) Ping(ctx context.Context) error { return f.PingErr }

func (f *FakeClient) FindInstance(ctx context.Context, id, location string) (InstanceInfo, error) {
	if inst, ok := f.InstancesMap[id]; ok {
		return inst, nil
	}
	return InstanceInfo{}, &NotFoundError{Resource: "instance", Name: id}
}

func (f *FakeClient) FindVolume(ctx context.Context, id, location string) (VolumeInfo, error) {
	if vol, ok := f.VolumesMap[id]; ok {
		return vol, nil
	}
	return VolumeInfo{}, &NotFoundError{Resource: "volume", Name: id}
}

func (f *FakeClient) CreateSnapshot(ctx context.Context, req CreateRequest) (string, error) {
	f.CreateCalls = append(f.CreateCalls, req)
	if f.FailCreate[req.SourceVolumeID] {
		return "", fmt.Errorf("create snapshot %s: provider rejected request", req.Name)
	}
	if req.Incremental && f.FailIncremental[req.SourceVolumeID] {
		return "", fmt.Errorf("create snapshot %s: incremental snapshot not compatible with source storage class", req.Name)
	}
	f.nextID++
	id := fmt.Sprintf("snap-%04d", f.nextID)
	tags := map[string]string{}
	for k, v := range req.Tags {
		tags[k] = v
	}
	f.SnapshotsMap[id] = SnapshotRecord{
		ID:             id,
		Name:           req.Name,
		SourceVolumeID: req.SourceVolumeID,
		Incremental:    req.Incremental,
		SKU:            req.SKU,
		Tags:           tags,
	}
	return id, nil
}

func (f *FakeClient) ListSnapshots(ctx context.Context, tagFilter map[string]string) ([]SnapshotRecord, error) {
	var out []SnapshotRecord
	for _, rec := range f.SnapshotsMap {
		if matchesTags(rec.Tags, tagFilter) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *FakeClient) DeleteSnapshot(ctx context.Context, id string) error {
	if err, ok := f.DeleteErrs[id]; ok {
		return err
	}
	if _, ok := f.SnapshotsMap[id]; !ok {
		return &NotFoundError{Resource: "snapshot", Name: id}
	}
	delete(f.SnapshotsMap, id)
	f.DeletedIDs = append(f.DeletedIDs, id)
	return nil
}

// AddSnapshot seeds a pre-existing snapshot record.
func (f *FakeClient) AddSnapshot(rec SnapshotRecord) {
	f.SnapshotsMap[rec.ID] = rec
}

func matchesTags(tags, filter map[string]string) bool {
	for k, v := range filter {
		if tags[k] != v {
			return false
		}
	}
	return true
}
