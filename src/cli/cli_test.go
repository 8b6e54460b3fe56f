package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"cloudsnap/src/cloudapi"
)

func withFake(t *testing.T, f *cloudapi.FakeClient) {
	t.Helper()
	orig := connectFunc
	connectFunc = func(ctx context.Context, cmd *cobra.Command) (cloudapi.Client, error) {
		return f, nil
	}
	t.Cleanup(func() { connectFunc = orig })
}

func cliFake() *cloudapi.FakeClient {
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
	return f
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errBuf bytes.Buffer
	cmd := NewRootCmd(&out, &errBuf)
	cmd.SetArgs(args)
	_, err := cmd.ExecuteC()
	return out.String(), errBuf.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, _, err := runCLI(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.HasPrefix(out, "v") {
		t.Fatalf("unexpected version output: %q", out)
	}
}

func TestBackupCmd_CreatesTaggedSnapshots(t *testing.T) {
	f := cliFake()
	withFake(t, f)
	out, errOut, err := runCLI(t, "backup", "--target", "web01", "--location", "prod-rg",
		"--type", "incremental", "--retention", "7", "--reason", "nightly")
	if err != nil {
		t.Fatalf("backup failed: %v; stderr=%s", err, errOut)
	}
	if len(f.SnapshotsMap) != 2 {
		t.Fatalf("got %d snapshots, want 2", len(f.SnapshotsMap))
	}
	for _, rec := range f.SnapshotsMap {
		if rec.Tags["AutomatedBackup"] != "true" || rec.Tags["RetentionDays"] != "7" {
			t.Fatalf("snapshot missing metadata tags: %+v", rec.Tags)
		}
	}
	if !strings.Contains(out, "Created 2 snapshots") {
		t.Fatalf("unexpected summary: %q", out)
	}
}

func TestBackupCmd_DryRunIsSideEffectFree(t *testing.T) {
	f := cliFake()
	withFake(t, f)
	out, errOut, err := runCLI(t, "backup", "--target", "web01", "--retention", "7", "--dry-run")
	if err != nil {
		t.Fatalf("backup --dry-run failed: %v; stderr=%s", err, errOut)
	}
	if len(f.CreateCalls) != 0 {
		t.Fatalf("dry-run issued %d create calls", len(f.CreateCalls))
	}
	if !strings.Contains(out, "Planned 2 snapshots") {
		t.Fatalf("unexpected summary: %q", out)
	}
}

func TestBackupCmd_RequiresTargetOrConfig(t *testing.T) {
	withFake(t, cliFake())
	if _, _, err := runCLI(t, "backup"); err == nil {
		t.Fatalf("expected error without --target or --config")
	}
}

func TestBackupCmd_ConfigFile(t *testing.T) {
	f := cliFake()
	withFake(t, f)
	path := filepath.Join(t.TempDir(), "entries.yml")
	content := "entries:\n  - target: web01\n    location: prod-rg\n    type: full\n    retention_days: 30\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, err := runCLI(t, "backup", "--config", path); err != nil {
		t.Fatalf("backup --config failed: %v", err)
	}
	if len(f.SnapshotsMap) != 2 {
		t.Fatalf("got %d snapshots, want 2", len(f.SnapshotsMap))
	}
}

func TestBackupCmd_PingFailureIsFatal(t *testing.T) {
	f := cliFake()
	f.PingErr = errors.New("credentials expired")
	withFake(t, f)
	_, _, err := runCLI(t, "backup", "--target", "web01", "--retention", "7")
	if err == nil || !strings.Contains(err.Error(), "capability check") {
		t.Fatalf("expected fatal capability error, got %v", err)
	}
}

func TestCleanupCmd_DeletesEligibleWithYes(t *testing.T) {
	f := cliFake()
	f.AddSnapshot(cloudapi.SnapshotRecord{
		ID:      "snap-old",
		Created: time.Now().UTC().Add(-10 * 24 * time.Hour),
		Tags:    map[string]string{"AutomatedBackup": "true", "Target": "web01", "RetentionDays": "7"},
	})
	f.AddSnapshot(cloudapi.SnapshotRecord{
		ID:      "snap-young",
		Created: time.Now().UTC().Add(-1 * 24 * time.Hour),
		Tags:    map[string]string{"AutomatedBackup": "true", "Target": "web01", "RetentionDays": "7"},
	})
	withFake(t, f)
	out, errOut, err := runCLI(t, "cleanup", "-y")
	if err != nil {
		t.Fatalf("cleanup failed: %v; stderr=%s", err, errOut)
	}
	if _, ok := f.SnapshotsMap["snap-old"]; ok {
		t.Fatalf("expected snap-old deleted")
	}
	if _, ok := f.SnapshotsMap["snap-young"]; !ok {
		t.Fatalf("snap-young must be retained")
	}
	if !strings.Contains(out, "Deleted 1 snapshots") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestCleanupCmd_DryRunPreviewsOnly(t *testing.T) {
	f := cliFake()
	f.AddSnapshot(cloudapi.SnapshotRecord{
		ID:      "snap-old",
		Created: time.Now().UTC().Add(-30 * 24 * time.Hour),
		Tags:    map[string]string{"AutomatedBackup": "true", "Target": "web01", "RetentionDays": "7"},
	})
	withFake(t, f)
	out, _, err := runCLI(t, "cleanup", "--dry-run")
	if err != nil {
		t.Fatalf("cleanup --dry-run failed: %v", err)
	}
	if _, ok := f.SnapshotsMap["snap-old"]; !ok {
		t.Fatalf("dry-run must not delete")
	}
	if !strings.Contains(out, "snap-old") || !strings.Contains(out, "true") {
		t.Fatalf("expected preview row, got: %q", out)
	}
}

func TestResolveCmd_PrintsDiskTable(t *testing.T) {
	withFake(t, cliFake())
	out, _, err := runCLI(t, "resolve", "web01", "--location", "prod-rg")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if !strings.Contains(out, "instance") || !strings.Contains(out, "vol-os") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestResolveCmd_NotFound(t *testing.T) {
	withFake(t, cliFake())
	_, _, err := runCLI(t, "resolve", "ghost")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not-found error, got %v", err)
	}
}
