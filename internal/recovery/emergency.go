package recovery

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mr3od/bgate/internal/logx"
	"github.com/mr3od/bgate/internal/store"
)

// EmergencyOrphanRecord is one line of emergency_orphans.jsonl (spec §6):
// the last-resort record of a file the engine lost track of because both
// the compensator and the orphan-registry insert it tried failed.
type EmergencyOrphanRecord struct {
	Timestamp    string `json:"timestamp"`
	Hostname     string `json:"hostname"`
	User         string `json:"user"`
	PID          int    `json:"pid"`
	OriginalPath string `json:"original_path"`
	OrphanPath   string `json:"orphan_path"`
	FileSize     int64  `json:"file_size"`
	DBPath       string `json:"db_path"`
	Version      int    `json:"version"`
}

// NewEmergencyOrphanRecord fills in the ambient fields (host, user, pid,
// timestamp) for a record about to be appended.
func NewEmergencyOrphanRecord(original, orphan string, size int64, dbPath string) EmergencyOrphanRecord {
	hostname, _ := os.Hostname()
	user := os.Getenv("USER")
	if user == "" {
		user = os.Getenv("USERNAME")
	}
	return EmergencyOrphanRecord{
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Hostname:     hostname,
		User:         user,
		PID:          os.Getpid(),
		OriginalPath: original,
		OrphanPath:   orphan,
		FileSize:     size,
		DBPath:       dbPath,
		Version:      1,
	}
}

// EmergencyLogPath returns the emergency_orphans.jsonl path that sits beside
// the index database at dbPath (spec §6).
func EmergencyLogPath(dbPath string) string {
	return filepath.Join(filepath.Dir(dbPath), "emergency_orphans.jsonl")
}

// legacyEmergencyLogPath returns the accepted-on-import-only legacy sibling.
func legacyEmergencyLogPath(dbPath string) string {
	return filepath.Join(filepath.Dir(dbPath), "emergency_orphans.txt")
}

// AppendEmergencyOrphan appends rec as one JSON line to the log beside
// dbPath, the critical-unrecoverability fallback of spec §7: used only when
// both the duplicate-conflict compensator and the orphan-registry insert it
// attempted have already failed.
func AppendEmergencyOrphan(dbPath string, rec EmergencyOrphanRecord) error {
	path := EmergencyLogPath(dbPath)
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("recovery: marshaling emergency orphan record: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("recovery: opening emergency log %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("recovery: writing emergency log %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("recovery: syncing emergency log %s: %w", path, err)
	}
	return nil
}

// ImportEmergencyOrphans is recovery phase 1 (spec §4.7 step 1): import
// every line it can parse from the new-format JSONL log and the legacy
// pipe-delimited log, dropping successfully-processed lines and rewriting
// the remainder crash-safely.
func ImportEmergencyOrphans(ctx context.Context, idx store.Store, dbPath string, log logx.Sink) error {
	imported := 0
	for _, src := range []struct {
		path   string
		parser func(string) (EmergencyOrphanRecord, error)
	}{
		{EmergencyLogPath(dbPath), parseJSONLine},
		{legacyEmergencyLogPath(dbPath), parseLegacyLine},
	} {
		n, err := importOneLog(ctx, idx, src.path, src.parser, log)
		if err != nil {
			return err
		}
		imported += n
	}
	if imported > 0 {
		log.Infof("emergency-orphan import: %d record(s) imported", imported)
	}
	return nil
}

func importOneLog(ctx context.Context, idx store.Store, path string, parse func(string) (EmergencyOrphanRecord, error), log logx.Sink) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("recovery: reading %s: %w", path, err)
	}

	lines := splitLines(string(data))
	var kept []string
	imported := 0

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		rec, perr := parse(line)
		if perr != nil {
			log.Warningf("emergency-orphan import: keeping unparseable line in %s: %v", path, perr)
			kept = append(kept, line)
			continue
		}

		if _, err := os.Stat(rec.OrphanPath); err == nil {
			if _, err := idx.AddOrphan(ctx, rec.OriginalPath, rec.OrphanPath, rec.FileSize); err != nil {
				return imported, fmt.Errorf("recovery: registering imported orphan %s: %w", rec.OrphanPath, err)
			}
			imported++
		} else {
			log.Warningf("emergency orphan no longer exists: %s", rec.OrphanPath)
		}
		// Parsed lines are dropped from the log regardless of whether the
		// orphan path still existed; only unparseable lines are retained.
	}

	if len(kept) == len(lines) {
		return imported, nil
	}
	if err := rewriteLog(path, kept); err != nil {
		return imported, err
	}
	return imported, nil
}

func splitLines(data string) []string {
	data = strings.ReplaceAll(data, "\r\n", "\n")
	lines := strings.Split(data, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// rewriteLog crash-safely rewrites path to contain only kept: write to a
// sibling .tmp, fsync the file, fsync its directory, rename over the
// original, fsync the directory again. If kept is empty, delete the
// original instead and fsync the directory (spec §4.7 step 1).
func rewriteLog(path string, kept []string) error {
	dir := filepath.Dir(path)

	if len(kept) == 0 {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("recovery: removing exhausted emergency log %s: %w", path, err)
		}
		return fsyncDirPath(dir)
	}

	tmp := path + ".tmp"
	content := strings.Join(kept, "\n") + "\n"

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("recovery: creating %s: %w", tmp, err)
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return fmt.Errorf("recovery: writing %s: %w", tmp, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("recovery: syncing %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("recovery: closing %s: %w", tmp, err)
	}

	if err := fsyncDirPath(dir); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("recovery: renaming %s to %s: %w", tmp, path, err)
	}
	return fsyncDirPath(dir)
}

func parseJSONLine(line string) (EmergencyOrphanRecord, error) {
	var rec EmergencyOrphanRecord
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		return EmergencyOrphanRecord{}, err
	}
	if rec.OrphanPath == "" {
		return EmergencyOrphanRecord{}, fmt.Errorf("missing orphan_path")
	}
	return rec, nil
}

// parseLegacyLine parses the legacy pipe-delimited format (accepted on
// import only): timestamp|hostname|user|pid|original_path|orphan_path|
// file_size|db_path|version.
func parseLegacyLine(line string) (EmergencyOrphanRecord, error) {
	fields := strings.Split(line, "|")
	if len(fields) != 9 {
		return EmergencyOrphanRecord{}, fmt.Errorf("legacy line: want 9 fields, got %d", len(fields))
	}
	pid, err := strconv.Atoi(fields[3])
	if err != nil {
		return EmergencyOrphanRecord{}, fmt.Errorf("legacy line: bad pid %q: %w", fields[3], err)
	}
	size, err := strconv.ParseInt(fields[6], 10, 64)
	if err != nil {
		return EmergencyOrphanRecord{}, fmt.Errorf("legacy line: bad file_size %q: %w", fields[6], err)
	}
	version, err := strconv.Atoi(fields[8])
	if err != nil {
		return EmergencyOrphanRecord{}, fmt.Errorf("legacy line: bad version %q: %w", fields[8], err)
	}
	return EmergencyOrphanRecord{
		Timestamp:    fields[0],
		Hostname:     fields[1],
		User:         fields[2],
		PID:          pid,
		OriginalPath: fields[4],
		OrphanPath:   fields[5],
		FileSize:     size,
		DBPath:       fields[7],
		Version:      version,
	}, nil
}
