package batch_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"cloudsnap/src/batch"
	"cloudsnap/src/cloudapi"
)

var runTime = time.Date(2026, 3, 14, 3, 0, 0, 0, time.UTC)

func runnerFake() *cloudapi.FakeClient {
	f := cloudapi.NewFake()
	f.InstancesMap["web01"] = cloudapi.InstanceInfo{
		ID:             "web01",
		RootDeviceName: "web01-osdisk",
		OSDiskName:     "web01-osdisk",
		Devices: []cloudapi.DeviceMapping{
			{DeviceName: "web01-osdisk", VolumeID: "vol-os"},
			{DeviceName: "web01-data0", VolumeID: "vol-d0"},
		},
	}
	f.VolumesMap["lonely-disk"] = cloudapi.VolumeInfo{ID: "vol-77"}
	return f
}

func goodEntries() []batch.Entry {
	return []batch.Entry{
		{Target: "web01", Location: "prod-rg", Type: "incremental", RetentionDays: "7"},
		{Target: "lonely-disk", Location: "prod-rg", Type: "full", RetentionDays: "30"},
	}
}

func TestRun_CreatesSnapshotsForEveryEntry(t *testing.T) {
	f := runnerFake()
	r := batch.Runner{Client: f, Logger: zerolog.Nop(), Now: func() time.Time { return runTime }}
	sum, err := r.Run(context.Background(), goodEntries(), false)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if sum.Created != 3 || sum.Skipped != 0 || sum.FailedDisks != 0 {
		t.Fatalf("summary = %+v, want 3 created", sum)
	}
	if len(f.SnapshotsMap) != 3 {
		t.Fatalf("got %d snapshots, want 3", len(f.SnapshotsMap))
	}
}

func TestRun_PreviewIssuesNoCreateCalls(t *testing.T) {
	f := runnerFake()
	r := batch.Runner{Client: f, Logger: zerolog.Nop(), Now: func() time.Time { return runTime }}
	sum, err := r.Run(context.Background(), goodEntries(), true)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(f.CreateCalls) != 0 {
		t.Fatalf("dry-run issued %d create calls", len(f.CreateCalls))
	}
	if sum.Planned != 3 || sum.Created != 0 {
		t.Fatalf("summary = %+v, want 3 planned", sum)
	}
}

func TestRun_PreviewSelectsSameNamesAsApply(t *testing.T) {
	preview := runnerFake()
	r := batch.Runner{Client: preview, Logger: zerolog.Nop(), Now: func() time.Time { return runTime }}
	if _, err := r.Run(context.Background(), goodEntries(), true); err != nil {
		t.Fatalf("preview run: %v", err)
	}

	applied := runnerFake()
	r.Client = applied
	if _, err := r.Run(context.Background(), goodEntries(), false); err != nil {
		t.Fatalf("apply run: %v", err)
	}
	// Preview never calls the provider; equality of selection is checked
	// through the applied names being exactly the deterministic plan.
	wantNames := map[string]bool{
		"web01-20260314-030000-root0":       true,
		"web01-20260314-030000-data0":       true,
		"lonely-disk-20260314-030000-data0": true,
	}
	if len(applied.CreateCalls) != len(wantNames) {
		t.Fatalf("got %d create calls, want %d", len(applied.CreateCalls), len(wantNames))
	}
	for _, call := range applied.CreateCalls {
		if !wantNames[call.Name] {
			t.Fatalf("unexpected snapshot name %q", call.Name)
		}
	}
}

func TestRun_BadEntrySkippedBatchContinues(t *testing.T) {
	f := runnerFake()
	entries := []batch.Entry{
		{Target: "web01", Type: "incremental", RetentionDays: "NaN"}, // rejected
		{Target: "lonely-disk", Type: "full", RetentionDays: "30"},
	}
	r := batch.Runner{Client: f, Logger: zerolog.Nop(), Now: func() time.Time { return runTime }}
	sum, err := r.Run(context.Background(), entries, false)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if sum.Skipped != 1 || sum.Created != 1 {
		t.Fatalf("summary = %+v, want 1 skipped 1 created", sum)
	}
}

func TestRun_UnresolvableTargetSkippedBatchContinues(t *testing.T) {
	f := runnerFake()
	entries := []batch.Entry{
		{Target: "ghost", Type: "incremental", RetentionDays: "7"},
		{Target: "web01", Type: "incremental", RetentionDays: "7"},
	}
	r := batch.Runner{Client: f, Logger: zerolog.Nop(), Now: func() time.Time { return runTime }}
	sum, err := r.Run(context.Background(), entries, false)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if sum.Skipped != 1 || sum.Created != 2 {
		t.Fatalf("summary = %+v, want 1 skipped 2 created", sum)
	}
}

func TestRun_DataScopeWithoutDataDisksSkips(t *testing.T) {
	f := cloudapi.NewFake()
	f.InstancesMap["tiny"] = cloudapi.InstanceInfo{
		ID:             "tiny",
		RootDeviceName: "tiny-osdisk",
		Devices:        []cloudapi.DeviceMapping{{DeviceName: "tiny-osdisk", VolumeID: "vol-os"}},
	}
	entries := []batch.Entry{
		{Target: "tiny", Type: "incremental", RetentionDays: "7", Scope: "data"},
		{Target: "tiny", Type: "incremental", RetentionDays: "7", Scope: "os"},
	}
	r := batch.Runner{Client: f, Logger: zerolog.Nop(), Now: func() time.Time { return runTime }}
	sum, err := r.Run(context.Background(), entries, false)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if sum.Skipped != 1 || sum.Created != 1 {
		t.Fatalf("summary = %+v, want 1 skipped 1 created", sum)
	}
}

func TestRun_FailedDiskCountedNotFatal(t *testing.T) {
	f := runnerFake()
	f.FailCreate = map[string]bool{"vol-d0": true}
	r := batch.Runner{Client: f, Logger: zerolog.Nop(), Now: func() time.Time { return runTime }}
	sum, err := r.Run(context.Background(), goodEntries(), false)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if sum.FailedDisks != 1 || sum.Created != 2 {
		t.Fatalf("summary = %+v, want 1 failed disk 2 created", sum)
	}
}
