// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package validate

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// cacheSchemaVersion is bumped whenever the on-disk record shape changes
// incompatibly; LoadCacheFile discards and rebuilds from empty on mismatch.
const cacheSchemaVersion = 1

// cacheDir is the directory, relative to the workspace root, holding the
// persistent validation cache and its sibling ignore file.
const cacheDir = ".codeowners-lsp"

// cacheFileName is the cache file's base name within cacheDir.
const cacheFileName = "cache.json"

// cacheRecord is the on-disk representation of a Record.
type cacheRecord struct {
	Key             string    `json:"key"`
	State           string    `json:"state"`
	DisplayName     string    `json:"display_name,omitempty"`
	AvatarURL       string    `json:"avatar_url,omitempty"`
	Kind            string    `json:"kind,omitempty"`
	TeamMemberCount int       `json:"team_member_count,omitempty"`
	Reason          string    `json:"reason,omitempty"`
	FetchedAt       time.Time `json:"fetched_at"`
}

// cacheFile is the JSON envelope persisted to cacheDir/cacheFileName.
type cacheFile struct {
	SchemaVersion int           `json:"schema_version"`
	UpdatedAt     time.Time     `json:"updated_at"`
	Checksum      string        `json:"checksum"`
	Records       []cacheRecord `json:"records"`
}

// CachePath returns the absolute path of the cache file under root.
func CachePath(root string) string {
	return filepath.Join(root, cacheDir, cacheFileName)
}

// LoadCacheFile reads and verifies the persistent cache at root. A missing
// file, a schema-version mismatch, a checksum mismatch, or any parse error
// is treated as an empty cache rather than a fatal error: the validator
// simply re-resolves every owner token from a cold start.
func LoadCacheFile(root string) map[string]Record {
	records := make(map[string]Record)

	data, err := os.ReadFile(CachePath(root))
	if err != nil {
		return records
	}

	var cf cacheFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return records
	}
	if cf.SchemaVersion != cacheSchemaVersion {
		return records
	}
	if cf.Checksum != checksumRecords(cf.Records) {
		return records
	}

	for _, r := range cf.Records {
		records[r.Key] = recordFromCacheRecord(r)
	}
	return records
}

// SaveCacheFile atomically persists records to root's cache file, creating
// cacheDir and its sibling .gitignore (so the cache never pollutes the
// owning repository's tracked files) on first write.
func SaveCacheFile(root string, records map[string]Record) error {
	dir := filepath.Join(root, cacheDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	if err := ensureIgnoreFile(dir); err != nil {
		return fmt.Errorf("ensure cache ignore file: %w", err)
	}

	out := make([]cacheRecord, 0, len(records))
	for key, rec := range records {
		out = append(out, cacheRecordFromRecord(key, rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })

	cf := cacheFile{
		SchemaVersion: cacheSchemaVersion,
		UpdatedAt:     time.Now(),
		Checksum:      checksumRecords(out),
		Records:       out,
	}

	data, err := json.MarshalIndent(cf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}

	return writeFileAtomic(CachePath(root), data)
}

// writeFileAtomic writes data to path via a temp file in the same
// directory followed by a rename, so a crash or concurrent reader never
// observes a partially written cache.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".cache-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp cache file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp cache file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp cache file: %w", err)
	}

	success = true
	return nil
}

// ensureIgnoreFile writes a catch-all .gitignore inside dir, so that a
// workspace owner never needs to add the validator's cache directory to
// their own ignore rules. It is a no-op if the file already exists.
func ensureIgnoreFile(dir string) error {
	path := filepath.Join(dir, ".gitignore")
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return os.WriteFile(path, []byte("*\n"), 0o644)
}

// checksumRecords computes a deterministic checksum over records,
// independent of the surrounding envelope (schema_version, updated_at),
// so that timestamp churn never invalidates an otherwise-unchanged cache.
func checksumRecords(records []cacheRecord) string {
	sorted := make([]cacheRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })

	data, _ := json.Marshal(sorted)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func cacheRecordFromRecord(key string, r Record) cacheRecord {
	return cacheRecord{
		Key:             key,
		State:           r.State.String(),
		DisplayName:     r.Identity.DisplayName,
		AvatarURL:       r.Identity.AvatarURL,
		Kind:            r.Identity.Kind.String(),
		TeamMemberCount: r.Identity.TeamMemberCount,
		Reason:          r.Reason,
		FetchedAt:       r.FetchedAt,
	}
}

func recordFromCacheRecord(c cacheRecord) Record {
	var state State
	switch c.State {
	case "valid":
		state = Valid
	case "invalid":
		state = Invalid
	default:
		state = Unknown
	}
	var kind OwnerKind
	switch c.Kind {
	case "user":
		kind = KindUser
	case "team":
		kind = KindTeam
	case "email":
		kind = KindEmail
	}
	return Record{
		State: state,
		Identity: Identity{
			DisplayName:     c.DisplayName,
			AvatarURL:       c.AvatarURL,
			Kind:            kind,
			TeamMemberCount: c.TeamMemberCount,
		},
		Reason:    c.Reason,
		FetchedAt: c.FetchedAt,
	}
}
