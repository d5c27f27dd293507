// Package snapshot builds and reads SchemaSnapshot artifacts:
// a textual combination of every declared DDL file in deterministic order,
// headered with environment, generation time, content hash and file count,
// and written to the schema_history directory keyed by migration version.
// Snapshots are read-only once written; only the build step creates them.
package snapshot

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fraiseql/confiture-sub001/pkg/errcat"
	"github.com/fraiseql/confiture-sub001/pkg/migrate"
)

// SourceFile is one input file contributing to a snapshot, already read
// into memory so the content hash and the written body use identical
// bytes.
type SourceFile struct {
	RelPath string
	Bytes   []byte
}

// Header carries the descriptive metadata prepended to a written snapshot:
// "Environment: <name>, Generated: <iso-8601>, Schema Hash: <hex>, Files
// Included: <n>".
type Header struct {
	Environment  string
	Generated    time.Time
	SchemaHash   string
	FilesIncluded int
}

// Snapshot is the full built artifact: header plus concatenated body text.
type Snapshot struct {
	Header Header
	Body   string
}

// BuildSchema reads every *.sql file under schemaDir in deterministic
// (lexical, path-sorted) order and concatenates their contents, matching
// the Schema Builder's obligation to feed both the declared-DDL path of the
// Rebuild Protocol and the Baseline Detector's normalized comparison with a
// single canonical text.
func BuildSchema(schemaDir string) ([]SourceFile, string, error) {
	var files []SourceFile
	err := filepath.WalkDir(schemaDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !strings.HasSuffix(path, ".sql") {
			return nil
		}
		rel, rerr := filepath.Rel(schemaDir, path)
		if rerr != nil {
			rel = path
		}
		body, rerr := os.ReadFile(path)
		if rerr != nil {
			return rerr
		}
		files = append(files, SourceFile{RelPath: filepath.ToSlash(rel), Bytes: body})
		return nil
	})
	if err != nil {
		return nil, "", &errcat.SchemaError{Code: "SCHEMA_010", Message: "cannot read schema directory: " + err.Error()}
	}

	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })

	var body bytes.Buffer
	for i, f := range files {
		if i > 0 {
			body.WriteByte('\n')
		}
		body.Write(f.Bytes)
	}
	return files, body.String(), nil
}

// ContentHash computes the stable digest of (relative path, file bytes)
// pairs ordered by path. files must already be sorted by
// RelPath (BuildSchema guarantees this).
func ContentHash(files []SourceFile) string {
	h := sha256.New()
	for _, f := range files {
		h.Write([]byte(f.RelPath))
		h.Write([]byte{0})
		h.Write(f.Bytes)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Build assembles a Snapshot for environment from the *.sql files under
// schemaDir, at the given generation time (passed in by the caller since
// this package must stay free of wall-clock reads to remain deterministic
// in tests).
func Build(environment, schemaDir string, generated time.Time) (Snapshot, error) {
	files, body, err := BuildSchema(schemaDir)
	if err != nil {
		return Snapshot{}, err
	}
	hash := ContentHash(files)
	return Snapshot{
		Header: Header{
			Environment:   environment,
			Generated:     generated,
			SchemaHash:    hash,
			FilesIncluded: len(files),
		},
		Body: body,
	}, nil
}

// Render produces the full on-disk text: the header block followed by a
// blank line and the concatenated DDL body.
func (s Snapshot) Render() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("-- Environment: %s\n", s.Header.Environment))
	sb.WriteString(fmt.Sprintf("-- Generated: %s\n", s.Header.Generated.UTC().Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("-- Schema Hash: %s\n", s.Header.SchemaHash))
	sb.WriteString(fmt.Sprintf("-- Files Included: %d\n\n", s.Header.FilesIncluded))
	sb.WriteString(s.Body)
	return sb.String()
}

var headerLineRe = regexp.MustCompile(`^-- (Environment|Generated|Schema Hash|Files Included): (.*)$`)

// Parse reads a previously-rendered snapshot's header and body back apart.
// Unrecognized header lines are ignored, so a snapshot written by a later
// version of this tool with extra header fields still parses.
func Parse(text string) (Snapshot, error) {
	lines := strings.Split(text, "\n")
	var s Snapshot
	i := 0
	for ; i < len(lines); i++ {
		line := lines[i]
		if strings.TrimSpace(line) == "" {
			i++
			break
		}
		m := headerLineRe.FindStringSubmatch(line)
		if m == nil {
			break
		}
		switch m[1] {
		case "Environment":
			s.Header.Environment = m[2]
		case "Generated":
			t, err := time.Parse(time.RFC3339, m[2])
			if err != nil {
				return Snapshot{}, &errcat.SchemaError{Code: "SCHEMA_011", Message: "malformed snapshot Generated header: " + err.Error()}
			}
			s.Header.Generated = t
		case "Schema Hash":
			s.Header.SchemaHash = m[2]
		case "Files Included":
			n, err := strconv.Atoi(m[2])
			if err != nil {
				return Snapshot{}, &errcat.SchemaError{Code: "SCHEMA_012", Message: "malformed snapshot Files Included header: " + err.Error()}
			}
			s.Header.FilesIncluded = n
		}
	}
	s.Body = strings.Join(lines[i:], "\n")
	return s, nil
}

// versionNameRe matches the history directory's "<version>_<name>.sql"
// filename shape, the same convention migrate.Unit discovery uses.
var versionNameRe = regexp.MustCompile(`^([^_]+)_(.+)\.sql$`)

// Entry is one snapshot file discovered in a history directory.
type Entry struct {
	Version string
	Name    string
	Path    string
}

// WriteToHistory writes snap to <dir>/<version>_<name>.sql. The history
// directory is write-once from the core's perspective: callers must not
// invoke this against a version/name pair that already exists except
// during `build`, which is the sole writer.
func WriteToHistory(dir, version, name string, snap Snapshot) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &errcat.SchemaError{Code: "SCHEMA_013", Message: "cannot create schema history directory: " + err.Error()}
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.sql", version, name))
	if _, err := os.Stat(path); err == nil {
		return "", &errcat.SchemaError{Code: "SCHEMA_014", Message: fmt.Sprintf("snapshot %s already exists and is read-only", path)}
	}
	if err := os.WriteFile(path, []byte(snap.Render()), 0o644); err != nil {
		return "", &errcat.SchemaError{Code: "SCHEMA_015", Message: "cannot write snapshot: " + err.Error()}
	}
	return path, nil
}

// ListHistory discovers every snapshot file in dir, sorted by version using
// the same equal-length-numeric-then-lexical comparison the Migration
// Engine uses for unit ordering, so snapshot and migration version strings
// stay interchangeable.
func ListHistory(dir string) ([]Entry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &errcat.SchemaError{Code: "SCHEMA_016", Message: "cannot read schema history directory: " + err.Error()}
	}

	var out []Entry
	for _, de := range entries {
		if de.IsDir() {
			continue
		}
		m := versionNameRe.FindStringSubmatch(de.Name())
		if m == nil {
			continue
		}
		out = append(out, Entry{Version: m[1], Name: m[2], Path: filepath.Join(dir, de.Name())})
	}
	sort.Slice(out, func(i, j int) bool { return migrate.CompareVersions(out[i].Version, out[j].Version) < 0 })
	return out, nil
}

// ReadSnapshot loads and parses one history entry's file.
func ReadSnapshot(path string) (Snapshot, error) {
	text, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, &errcat.SchemaError{Code: "SCHEMA_017", Message: "cannot read snapshot: " + err.Error()}
	}
	return Parse(string(text))
}
