package snapshot

import (
	"strconv"
	"time"

	"cloudsnap/src/cloudapi"
	"cloudsnap/src/resolve"
)

// Tag keys of the snapshot metadata contract. Provider-side tags are the
// only persistent state of the system; a snapshot without
// AutomatedBackup=true is invisible to both SKU lookup and cleanup.
const (
	TagTarget        = "Target"
	TagReason        = "Reason"
	TagBackupType    = "BackupType"
	TagDate          = "Date"
	TagTime          = "Time"
	TagAutomated     = "AutomatedBackup"
	TagRetentionDays = "RetentionDays"
)

// DefaultRetentionDays applies when a scanned snapshot carries a missing or
// unparsable RetentionDays tag.
const DefaultRetentionDays = 14

// BackupType selects the creation strategy.
type BackupType string

const (
	TypeIncremental BackupType = "incremental"
	TypeFull        BackupType = "full"
)

// ParseBackupType validates a raw config value.
func ParseBackupType(s string) (BackupType, error) {
	switch BackupType(s) {
	case TypeIncremental, TypeFull:
		return BackupType(s), nil
	}
	return "", &ConfigError{Field: "type", Value: s}
}

// ParseRetentionDays validates a raw retention value: it must be a
// non-negative integer.
func ParseRetentionDays(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, &ConfigError{Field: "retention_days", Value: s}
	}
	return n, nil
}

// ConfigError reports a malformed request field. The affected entry is
// skipped; the batch continues.
type ConfigError struct{ Field, Value string }

func (e *ConfigError) Error() string {
	return "invalid " + e.Field + ": " + strconv.Quote(e.Value)
}

// Request is a validated snapshot request for one target.
type Request struct {
	Target        string
	Location      string
	Type          BackupType
	RetentionDays int
	Scope         resolve.Scope
	Reason        string
}

// BuildTags produces the tag mapping attached at create time. actual is the
// backup type that ultimately succeeded, which may differ from the requested
// type when the incremental attempt fell back to full.
func BuildTags(req Request, actual BackupType, now time.Time) map[string]string {
	now = now.UTC()
	return map[string]string{
		TagTarget:        req.Target,
		TagReason:        req.Reason,
		TagBackupType:    string(actual),
		TagDate:          now.Format("2006-01-02"),
		TagTime:          now.Format("15:04:05"),
		TagAutomated:     "true",
		TagRetentionDays: strconv.Itoa(req.RetentionDays),
	}
}

// Meta is the parsed-back view of a snapshot's tags.
type Meta struct {
	Automated     bool
	Target        string
	BackupType    BackupType
	RetentionDays int
	Created       time.Time
}

// ParseTags reads a record's tags defensively: unknown keys are ignored, a
// missing or non-numeric RetentionDays yields DefaultRetentionDays, and the
// creation timestamp falls back to the Date/Time tags when the provider
// reported none.
func ParseTags(rec cloudapi.SnapshotRecord) Meta {
	m := Meta{
		Automated:     rec.Tags[TagAutomated] == "true",
		Target:        rec.Tags[TagTarget],
		BackupType:    BackupType(rec.Tags[TagBackupType]),
		RetentionDays: DefaultRetentionDays,
		Created:       rec.Created,
	}
	if n, err := strconv.Atoi(rec.Tags[TagRetentionDays]); err == nil && n >= 0 {
		m.RetentionDays = n
	}
	if m.Created.IsZero() {
		if t, err := time.Parse("2006-01-02 15:04:05", rec.Tags[TagDate]+" "+rec.Tags[TagTime]); err == nil {
			m.Created = t.UTC()
		}
	}
	return m
}
