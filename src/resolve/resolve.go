// Package resolve classifies an opaque target identifier into a typed
// snapshot target and enumerates the disks a request applies to.
package resolve

import (
	"context"
	"fmt"
	"strings"

	"cloudsnap/src/cloudapi"
)

// Kind is the resolved target variant. A target is exactly one variant,
// never both.
type Kind string

const (
	KindInstance Kind = "instance"
	KindVolume   Kind = "volume"
)

// Role distinguishes the OS/root disk from data disks.
type Role string

const (
	RoleRoot Role = "root"
	RoleData Role = "data"
)

// Scope selects which of a target's disks a request applies to.
type Scope string

const (
	ScopeOS   Scope = "os"
	ScopeData Scope = "data"
	ScopeAll  Scope = "all"
)

// ParseScope validates a raw scope selector.
func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToLower(s)) {
	case ScopeOS, ScopeData, ScopeAll:
		return Scope(strings.ToLower(s)), nil
	}
	return "", fmt.Errorf("invalid scope %q (want os|data|all)", s)
}

// DiskRef identifies one volume of a target. Role plus Index make snapshot
// names deterministic and collision-free within a run.
type DiskRef struct {
	VolumeID string
	Role     Role
	Index    int
}

// Target is a resolved snapshot target with its ordered disk set.
type Target struct {
	Identifier string
	Location   string
	Kind       Kind
	Disks      []DiskRef
}

// ResolutionError reports a target that cannot proceed to creation. It
// invalidates the current entry only, never the batch.
type ResolutionError struct {
	Identifier string
	Reason     string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %s: %s", e.Identifier, e.Reason)
}

// Resolve classifies identifier within location: instance lookup first, then
// a direct volume lookup, then failure. Provider errors other than NotFound
// surface unchanged so the caller can report them against the entry.
func Resolve(ctx context.Context, client cloudapi.Client, identifier, location string) (Target, error) {
	inst, err := client.FindInstance(ctx, identifier, location)
	if err == nil {
		return resolveInstance(ctx, client, identifier, location, inst)
	}
	if !cloudapi.IsNotFound(err) {
		return Target{}, err
	}

	vol, err := client.FindVolume(ctx, identifier, location)
	if err == nil {
		return Target{
			Identifier: identifier,
			Location:   location,
			Kind:       KindVolume,
			Disks:      []DiskRef{{VolumeID: vol.ID, Role: RoleData, Index: 0}},
		}, nil
	}
	if !cloudapi.IsNotFound(err) {
		return Target{}, err
	}
	return Target{}, &ResolutionError{Identifier: identifier, Reason: "target not found"}
}

func resolveInstance(ctx context.Context, client cloudapi.Client, identifier, location string, inst cloudapi.InstanceInfo) (Target, error) {
	t := Target{Identifier: identifier, Location: location, Kind: KindInstance}
	rootIdx, dataIdx := 0, 0
	for _, dev := range inst.Devices {
		ref := DiskRef{VolumeID: dev.VolumeID}
		if dev.DeviceName == inst.RootDeviceName {
			ref.Role = RoleRoot
			ref.Index = rootIdx
			rootIdx++
		} else {
			ref.Role = RoleData
			ref.Index = dataIdx
			dataIdx++
		}
		if ref.Role == RoleRoot && ref.VolumeID == "" {
			// Secondary lookup through the OS disk name.
			vol, err := client.FindVolume(ctx, inst.OSDiskName, location)
			if err != nil {
				if cloudapi.IsNotFound(err) {
					return Target{}, &ResolutionError{Identifier: identifier, Reason: "root volume id could not be determined"}
				}
				return Target{}, err
			}
			ref.VolumeID = vol.ID
		}
		t.Disks = append(t.Disks, ref)
	}
	if rootIdx == 0 {
		return Target{}, &ResolutionError{Identifier: identifier, Reason: "root volume id could not be determined"}
	}
	return t, nil
}

// SelectDisks applies the scope selector to a resolved target. Scope is not
// applicable to standalone volumes, which always yield their single disk.
// An empty selection is a ResolutionError so the entry is skipped, not
// crashed on.
func SelectDisks(t Target, scope Scope) ([]DiskRef, error) {
	if t.Kind == KindVolume {
		return t.Disks, nil
	}
	var out []DiskRef
	for _, d := range t.Disks {
		switch scope {
		case ScopeAll:
			out = append(out, d)
		case ScopeOS:
			if d.Role == RoleRoot {
				out = append(out, d)
			}
		case ScopeData:
			if d.Role == RoleData {
				out = append(out, d)
			}
		}
	}
	if len(out) == 0 {
		return nil, &ResolutionError{Identifier: t.Identifier, Reason: fmt.Sprintf("no eligible disks for scope %s", scope)}
	}
	return out, nil
}
