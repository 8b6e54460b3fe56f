package batch

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"cloudsnap/src/cloudapi"
	"cloudsnap/src/resolve"
	"cloudsnap/src/snapshot"
)

// Runner executes batch entries strictly one at a time, disks in order.
// Every skip, fallback, and failure produces an event; nothing is silently
// dropped.
type Runner struct {
	Client cloudapi.Client
	Logger zerolog.Logger
	// Now supplies the run timestamp; defaults to time.Now.
	Now func() time.Time
}

// Summary aggregates one batch run.
type Summary struct {
	Entries       int
	Skipped       int
	FailedEntries int
	Created       int
	FailedDisks   int
	Planned       int
}

// Run processes every entry it can. A bad entry or a failing disk never
// blocks the rest; only context cancellation stops the batch early.
func (r Runner) Run(ctx context.Context, entries []Entry, dryRun bool) (Summary, error) {
	now := time.Now()
	if r.Now != nil {
		now = r.Now()
	}
	now = now.UTC()

	var sum Summary
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		sum.Entries++
		r.runEntry(ctx, e, now, dryRun, &sum)
	}
	r.Logger.Info().
		Int("entries", sum.Entries).
		Int("skipped", sum.Skipped).
		Int("created", sum.Created).
		Int("planned", sum.Planned).
		Int("failed_disks", sum.FailedDisks).
		Bool("dry_run", dryRun).
		Msg("batch finished")
	return sum, nil
}

func (r Runner) runEntry(ctx context.Context, e Entry, now time.Time, dryRun bool, sum *Summary) {
	log := r.Logger.With().Str("target", e.Target).Str("location", e.Location).Logger()

	req, err := e.Validate()
	if err != nil {
		log.Warn().Err(err).Msg("entry rejected, skipping")
		sum.Skipped++
		return
	}

	t, err := resolve.Resolve(ctx, r.Client, req.Target, req.Location)
	if err != nil {
		var re *resolve.ResolutionError
		if errors.As(err, &re) {
			log.Warn().Err(err).Msg("target not resolvable, skipping")
			sum.Skipped++
			return
		}
		log.Error().Err(err).Msg("provider error resolving target")
		sum.FailedEntries++
		return
	}
	log.Info().
		Str("kind", string(t.Kind)).
		Int("disks", len(t.Disks)).
		Msg("target resolved")

	if dryRun {
		plan, err := snapshot.Plan(t, req, now)
		if err != nil {
			log.Warn().Err(err).Msg("no eligible disks, skipping")
			sum.Skipped++
			return
		}
		for _, p := range plan {
			log.Info().
				Str("volume", p.VolumeID).
				Str("role", string(p.Role)).
				Str("snapshot", p.Name).
				Msg("would create snapshot")
		}
		sum.Planned += len(plan)
		return
	}

	outcomes, err := snapshot.Apply(ctx, r.Client, log, t, req, now)
	if err != nil {
		var re *resolve.ResolutionError
		if errors.As(err, &re) {
			log.Warn().Err(err).Msg("no eligible disks, skipping")
			sum.Skipped++
			return
		}
		log.Error().Err(err).Msg("entry failed")
		sum.FailedEntries++
		return
	}
	for _, out := range outcomes {
		if out.Err != nil {
			sum.FailedDisks++
			continue
		}
		sum.Created++
	}
}
