// Package retention scans tagged snapshots, computes their age, and deletes
// the ones whose retention window has elapsed.
package retention

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"cloudsnap/src/cloudapi"
	"cloudsnap/src/snapshot"
)

// Candidate is one scanned snapshot with its eligibility verdict.
type Candidate struct {
	Record        cloudapi.SnapshotRecord
	Target        string
	RetentionDays int
	Created       time.Time
	AgeDays       int
	Eligible      bool
}

// Result summarizes an apply pass.
type Result struct {
	Deleted int
	Failed  int
}

// AgeDays returns the whole days elapsed between created and now.
func AgeDays(created, now time.Time) int {
	if created.IsZero() || now.Before(created) {
		return 0
	}
	return int(now.Sub(created).Hours() / 24)
}

// Scan lists every snapshot tagged AutomatedBackup=true and evaluates it
// against its own RetentionDays tag (defensive parse, default applied when
// absent or invalid). Eligibility is boundary-inclusive: a snapshot exactly
// RetentionDays old is eligible.
func Scan(ctx context.Context, client cloudapi.Client, now time.Time) ([]Candidate, error) {
	recs, err := client.ListSnapshots(ctx, map[string]string{snapshot.TagAutomated: "true"})
	if err != nil {
		return nil, err
	}
	out := make([]Candidate, 0, len(recs))
	for _, rec := range recs {
		meta := snapshot.ParseTags(rec)
		if !meta.Automated {
			continue
		}
		age := AgeDays(meta.Created, now)
		out = append(out, Candidate{
			Record:        rec,
			Target:        meta.Target,
			RetentionDays: meta.RetentionDays,
			Created:       meta.Created,
			AgeDays:       age,
			Eligible:      age >= meta.RetentionDays,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Record.ID < out[j].Record.ID })
	return out, nil
}

// Apply deletes every eligible candidate. Deletions are independent: a
// failure is logged and counted, and evaluation continues with the next
// candidate. Eligibility is not re-checked between scan and delete.
func Apply(ctx context.Context, client cloudapi.Client, logger zerolog.Logger, candidates []Candidate) Result {
	var res Result
	for _, c := range candidates {
		if !c.Eligible {
			continue
		}
		log := logger.With().
			Str("snapshot", c.Record.ID).
			Str("target", c.Target).
			Int("age_days", c.AgeDays).
			Int("retention_days", c.RetentionDays).
			Logger()
		if err := client.DeleteSnapshot(ctx, c.Record.ID); err != nil {
			log.Error().Err(err).Msg("snapshot delete failed")
			res.Failed++
			continue
		}
		log.Info().Msg("snapshot deleted")
		res.Deleted++
	}
	return res
}
