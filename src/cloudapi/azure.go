package cloudapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v5"
)

// AzureClient implements Client over Azure managed disks. The location
// argument of the Client interface is the resource group name.
type AzureClient struct {
	vms   *armcompute.VirtualMachinesClient
	disks *armcompute.DisksClient
	snaps *armcompute.SnapshotsClient
}

// ConnectAzure builds an AzureClient from the default credential chain.
// The subscription comes from AZURE_SUBSCRIPTION_ID when subscriptionID is
// empty.
func ConnectAzure(subscriptionID string) (*AzureClient, error) {
	if subscriptionID == "" {
		subscriptionID = os.Getenv("AZURE_SUBSCRIPTION_ID")
	}
	if subscriptionID == "" {
		return nil, errors.New("azure: subscription id is required (set AZURE_SUBSCRIPTION_ID)")
	}
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("azure credential: %w", err)
	}
	vms, err := armcompute.NewVirtualMachinesClient(subscriptionID, cred, nil)
	if err != nil {
		return nil, err
	}
	disks, err := armcompute.NewDisksClient(subscriptionID, cred, nil)
	if err != nil {
		return nil, err
	}
	snaps, err := armcompute.NewSnapshotsClient(subscriptionID, cred, nil)
	if err != nil {
		return nil, err
	}
	return &AzureClient{vms: vms, disks: disks, snaps: snaps}, nil
}

func (a *AzureClient) Ping(ctx context.Context) error {
	pager := a.snaps.NewListPager(nil)
	if !pager.More() {
		return nil
	}
	if _, err := pager.NextPage(ctx); err != nil {
		return fmt.Errorf("azure: snapshot capability unavailable: %w", err)
	}
	return nil
}

func (a *AzureClient) FindInstance(ctx context.Context, id, location string) (InstanceInfo, error) {
	resp, err := a.vms.Get(ctx, location, id, nil)
	if err != nil {
		return InstanceInfo{}, azureMapErr(err, "instance", id)
	}
	info := InstanceInfo{ID: id, Location: location}
	if resp.Location != nil {
		info.Location = *resp.Location
	}
	props := resp.Properties
	if props == nil || props.StorageProfile == nil {
		return InstanceInfo{}, fmt.Errorf("azure: vm %s has no storage profile", id)
	}
	sp := props.StorageProfile
	if sp.OSDisk != nil {
		osName := deref(sp.OSDisk.Name)
		info.RootDeviceName = osName
		info.OSDiskName = osName
		osID := ""
		if sp.OSDisk.ManagedDisk != nil {
			osID = deref(sp.OSDisk.ManagedDisk.ID)
		}
		info.Devices = append(info.Devices, DeviceMapping{DeviceName: osName, VolumeID: osID})
	}
	// Data disks in LUN order so the ordinal index is stable across runs.
	dataDisks := append([]*armcompute.DataDisk(nil), sp.DataDisks...)
	sort.Slice(dataDisks, func(i, j int) bool { return deref32(dataDisks[i].Lun) < deref32(dataDisks[j].Lun) })
	for _, d := range dataDisks {
		if d == nil {
			continue
		}
		volID := ""
		if d.ManagedDisk != nil {
			volID = deref(d.ManagedDisk.ID)
		}
		info.Devices = append(info.Devices, DeviceMapping{DeviceName: deref(d.Name), VolumeID: volID})
	}
	return info, nil
}

func (a *AzureClient) FindVolume(ctx context.Context, id, location string) (VolumeInfo, error) {
	resp, err := a.disks.Get(ctx, location, id, nil)
	if err != nil {
		return VolumeInfo{}, azureMapErr(err, "volume", id)
	}
	vol := VolumeInfo{Name: id}
	if resp.ID != nil {
		vol.ID = *resp.ID
	}
	if resp.Name != nil {
		vol.Name = *resp.Name
	}
	if resp.Location != nil {
		vol.Location = *resp.Location
	}
	if resp.SKU != nil && resp.SKU.Name != nil {
		vol.SKU = string(*resp.SKU.Name)
	}
	return vol, nil
}

func (a *AzureClient) CreateSnapshot(ctx context.Context, req CreateRequest) (string, error) {
	region, err := a.sourceRegion(ctx, req.SourceVolumeID, req.Location)
	if err != nil {
		return "", err
	}
	snap := armcompute.Snapshot{
		Location: to.Ptr(region),
		Tags:     toTagPtrs(req.Tags),
		Properties: &armcompute.SnapshotProperties{
			Incremental: to.Ptr(req.Incremental),
			CreationData: &armcompute.CreationData{
				CreateOption:     to.Ptr(armcompute.DiskCreateOptionCopy),
				SourceResourceID: to.Ptr(req.SourceVolumeID),
			},
		},
	}
	if req.SKU != "" {
		snap.SKU = &armcompute.SnapshotSKU{
			Name: to.Ptr(armcompute.SnapshotStorageAccountTypes(req.SKU)),
		}
	}
	poller, err := a.snaps.BeginCreateOrUpdate(ctx, req.Location, req.Name, snap, nil)
	if err != nil {
		return "", err
	}
	resp, err := poller.PollUntilDone(ctx, nil)
	if err != nil {
		return "", err
	}
	return deref(resp.ID), nil
}

func (a *AzureClient) ListSnapshots(ctx context.Context, tagFilter map[string]string) ([]SnapshotRecord, error) {
	var out []SnapshotRecord
	pager := a.snaps.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, s := range page.Value {
			if s == nil {
				continue
			}
			rec := azureSnapshotRecord(s)
			if matchesTags(rec.Tags, tagFilter) {
				out = append(out, rec)
			}
		}
	}
	return out, nil
}

func (a *AzureClient) DeleteSnapshot(ctx context.Context, id string) error {
	group, name, err := splitResourceID(id)
	if err != nil {
		return err
	}
	poller, err := a.snaps.BeginDelete(ctx, group, name, nil)
	if err != nil {
		return azureMapErr(err, "snapshot", id)
	}
	_, err = poller.PollUntilDone(ctx, nil)
	return err
}

// sourceRegion resolves the region the snapshot must be created in, which is
// the source disk's region, not the resource group's.
func (a *AzureClient) sourceRegion(ctx context.Context, volumeID, group string) (string, error) {
	_, name, err := splitResourceID(volumeID)
	if err != nil {
		// Not an ARM id; treat it as a bare disk name in the group.
		name = volumeID
	}
	resp, err := a.disks.Get(ctx, group, name, nil)
	if err != nil {
		return "", azureMapErr(err, "volume", volumeID)
	}
	return deref(resp.Location), nil
}

func azureSnapshotRecord(s *armcompute.Snapshot) SnapshotRecord {
	rec := SnapshotRecord{
		ID:   deref(s.ID),
		Name: deref(s.Name),
		Tags: fromTagPtrs(s.Tags),
	}
	if s.SKU != nil && s.SKU.Name != nil {
		rec.SKU = string(*s.SKU.Name)
	}
	if p := s.Properties; p != nil {
		if p.Incremental != nil {
			rec.Incremental = *p.Incremental
		}
		if p.TimeCreated != nil {
			rec.Created = p.TimeCreated.UTC()
		}
		if p.CreationData != nil {
			rec.SourceVolumeID = deref(p.CreationData.SourceResourceID)
		}
	}
	return rec
}

// splitResourceID extracts the resource group and trailing resource name
// from an ARM id like
// /subscriptions/S/resourceGroups/G/providers/Microsoft.Compute/snapshots/N.
func splitResourceID(id string) (group, name string, err error) {
	parts := strings.Split(strings.Trim(id, "/"), "/")
	for i := 0; i+1 < len(parts); i++ {
		if strings.EqualFold(parts[i], "resourceGroups") {
			group = parts[i+1]
		}
	}
	if group == "" || len(parts) < 2 {
		return "", "", fmt.Errorf("azure: cannot parse resource id %q", id)
	}
	return group, parts[len(parts)-1], nil
}

func azureMapErr(err error, resource, name string) error {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
		return &NotFoundError{Resource: resource, Name: name}
	}
	return err
}

func toTagPtrs(tags map[string]string) map[string]*string {
	out := make(map[string]*string, len(tags))
	for k, v := range tags {
		out[k] = to.Ptr(v)
	}
	return out
}

func fromTagPtrs(tags map[string]*string) map[string]string {
	out := make(map[string]string, len(tags))
	for k, v := range tags {
		if v != nil {
			out[k] = *v
		}
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func deref32(n *int32) int32 {
	if n == nil {
		return 0
	}
	return *n
}
