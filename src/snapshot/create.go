package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"cloudsnap/src/cloudapi"
	"cloudsnap/src/resolve"
)

// Planned is one snapshot the creator intends to take. Preview and apply
// share the same plan, so switching modes can never change which disks are
// selected or how they are named.
type Planned struct {
	VolumeID string
	Role     resolve.Role
	Index    int
	Name     string
}

// Outcome is the final result for one disk.
type Outcome struct {
	Planned
	// UsedType is the strategy that actually ran last: it stays
	// incremental only when the incremental call succeeded.
	UsedType   BackupType
	SnapshotID string
	FellBack   bool
	Err        error
}

// Name derives the deterministic snapshot name for one disk of a target.
// Role plus index keep names collision-free across a target's disks within
// one run.
func Name(target string, now time.Time, role resolve.Role, index int) string {
	return fmt.Sprintf("%s-%s-%s%d", target, now.UTC().Format("20060102-150405"), role, index)
}

// Plan selects the disks the request's scope covers and names their
// snapshots. It performs no provider calls.
func Plan(t resolve.Target, req Request, now time.Time) ([]Planned, error) {
	disks, err := resolve.SelectDisks(t, req.Scope)
	if err != nil {
		return nil, err
	}
	out := make([]Planned, 0, len(disks))
	for _, d := range disks {
		out = append(out, Planned{
			VolumeID: d.VolumeID,
			Role:     d.Role,
			Index:    d.Index,
			Name:     Name(t.Identifier, now, d.Role, d.Index),
		})
	}
	return out, nil
}

// LookupSKU returns the storage SKU of the most recent incremental snapshot
// tagged for target, if any. Some providers require SKU continuity between
// successive incremental snapshots of the same lineage, so reusing the
// last-known SKU raises the odds the incremental create succeeds.
func LookupSKU(ctx context.Context, client cloudapi.Client, target string) (string, bool, error) {
	recs, err := client.ListSnapshots(ctx, map[string]string{
		TagAutomated: "true",
		TagTarget:    target,
	})
	if err != nil {
		return "", false, err
	}
	var best cloudapi.SnapshotRecord
	found := false
	for _, rec := range recs {
		if !rec.Incremental || rec.SKU == "" {
			continue
		}
		if !found || rec.Created.After(best.Created) {
			best, found = rec, true
		}
	}
	if !found {
		return "", false, nil
	}
	return best.SKU, true, nil
}

// Apply runs the create state machine for every planned disk. A full
// request issues exactly one full create; an incremental request tries
// incremental first (passing the last-known SKU when on record) and falls
// back to a full create on any failure. Full is the terminal strategy either
// way. Disks fail independently: one disk's failure never stops the rest.
func Apply(ctx context.Context, client cloudapi.Client, logger zerolog.Logger, t resolve.Target, req Request, now time.Time) ([]Outcome, error) {
	plan, err := Plan(t, req, now)
	if err != nil {
		return nil, err
	}
	outcomes := make([]Outcome, 0, len(plan))
	for _, p := range plan {
		outcomes = append(outcomes, createOne(ctx, client, logger, t, req, p, now))
	}
	return outcomes, nil
}

func createOne(ctx context.Context, client cloudapi.Client, logger zerolog.Logger, t resolve.Target, req Request, p Planned, now time.Time) Outcome {
	out := Outcome{Planned: p, UsedType: req.Type}
	log := logger.With().
		Str("target", t.Identifier).
		Str("volume", p.VolumeID).
		Str("snapshot", p.Name).
		Logger()

	if req.Type == TypeFull {
		out.SnapshotID, out.Err = doCreate(ctx, client, t, req, p, TypeFull, "", now)
		logOutcome(log, out)
		return out
	}

	sku, haveSKU, err := LookupSKU(ctx, client, t.Identifier)
	if err != nil {
		// Lookup trouble is not fatal to the attempt; create without a
		// pinned SKU.
		log.Warn().Err(err).Msg("sku lookup failed, attempting incremental without sku")
		sku, haveSKU = "", false
	}
	if haveSKU {
		log.Debug().Str("sku", sku).Msg("reusing sku from most recent incremental snapshot")
	}
	out.SnapshotID, out.Err = doCreate(ctx, client, t, req, p, TypeIncremental, sku, now)
	if out.Err == nil {
		logOutcome(log, out)
		return out
	}

	// Any incremental failure triggers the full fallback; SKU
	// incompatibility is the expected cause but the trigger is
	// intentionally broad, so transient causes land here too.
	log.Warn().Err(out.Err).Msg("incremental create failed, falling back to full")
	out.FellBack = true
	out.UsedType = TypeFull
	out.SnapshotID, out.Err = doCreate(ctx, client, t, req, p, TypeFull, "", now)
	logOutcome(log, out)
	return out
}

func doCreate(ctx context.Context, client cloudapi.Client, t resolve.Target, req Request, p Planned, typ BackupType, sku string, now time.Time) (string, error) {
	return client.CreateSnapshot(ctx, cloudapi.CreateRequest{
		SourceVolumeID: p.VolumeID,
		Name:           p.Name,
		Location:       t.Location,
		Tags:           BuildTags(req, typ, now),
		Incremental:    typ == TypeIncremental,
		SKU:            sku,
	})
}

func logOutcome(log zerolog.Logger, out Outcome) {
	if out.Err != nil {
		log.Error().Err(out.Err).Str("type", string(out.UsedType)).Msg("snapshot create failed")
		return
	}
	log.Info().
		Str("id", out.SnapshotID).
		Str("type", string(out.UsedType)).
		Bool("fallback", out.FellBack).
		Msg("snapshot created")
}
