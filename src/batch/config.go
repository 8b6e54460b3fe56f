// Package batch loads the snapshot work list and runs it entry by entry.
package batch

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"cloudsnap/src/resolve"
	"cloudsnap/src/snapshot"
)

// Entry is one raw line of the batch file. Fields stay unvalidated strings
// so one malformed entry rejects that entry, not the whole file.
type Entry struct {
	Target        string `yaml:"target"`
	Location      string `yaml:"location"`
	Type          string `yaml:"type"`
	RetentionDays string `yaml:"retention_days"`
	Scope         string `yaml:"scope,omitempty"`
	Reason        string `yaml:"reason,omitempty"`
}

// File is the on-disk batch config shape.
type File struct {
	Entries []Entry `yaml:"entries"`
}

// Load reads and decodes the batch file.
func Load(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse batch file: %w", err)
	}
	if len(f.Entries) == 0 {
		return nil, fmt.Errorf("batch file %s has no entries", path)
	}
	return f.Entries, nil
}

// Validate turns a raw entry into a snapshot request. Scope defaults to all
// disks when omitted; everything else is required.
func (e Entry) Validate() (snapshot.Request, error) {
	if e.Target == "" {
		return snapshot.Request{}, &snapshot.ConfigError{Field: "target", Value: ""}
	}
	typ, err := snapshot.ParseBackupType(e.Type)
	if err != nil {
		return snapshot.Request{}, err
	}
	days, err := snapshot.ParseRetentionDays(e.RetentionDays)
	if err != nil {
		return snapshot.Request{}, err
	}
	scopeStr := e.Scope
	if scopeStr == "" {
		scopeStr = string(resolve.ScopeAll)
	}
	scope, err := resolve.ParseScope(scopeStr)
	if err != nil {
		return snapshot.Request{}, &snapshot.ConfigError{Field: "scope", Value: e.Scope}
	}
	return snapshot.Request{
		Target:        e.Target,
		Location:      e.Location,
		Type:          typ,
		RetentionDays: days,
		Scope:         scope,
		Reason:        e.Reason,
	}, nil
}
