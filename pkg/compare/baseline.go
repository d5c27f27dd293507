package compare

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/fraiseql/confiture-sub001/pkg/errcat"
	"github.com/fraiseql/confiture-sub001/pkg/normalize"
)

// DefaultSimilarityThreshold is the minimum ratio for a fuzzy match to be
// reported as a hit.
const DefaultSimilarityThreshold = 0.85

// Snapshot is one named historical schema artifact read, unmodified, from
// the schema-history directory.
type Snapshot struct {
	Version string
	Text    string // raw file contents
}

// MatchResult is the Baseline Detector's verdict.
type MatchResult struct {
	Matched        bool
	Version        string
	Ratio          float64
	BestNearMiss   string  // version of the closest non-matching snapshot, for diagnostics
	BestNearRatio  float64
}

// LoadSnapshots reads every *.sql file in dir as a Snapshot, keyed by the
// version prefix of its filename (the same `<version>_<name>` convention
// as migration units).
func LoadSnapshots(dir string) ([]Snapshot, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &errcat.ConfigError{Code: "MIGR_020", Message: "cannot read schema history directory: " + err.Error()}
	}
	var snaps []Snapshot
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".sql" {
			continue
		}
		text, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, &errcat.ConfigError{Code: "MIGR_021", Message: err.Error()}
		}
		version := versionPrefix(e.Name())
		snaps = append(snaps, Snapshot{Version: version, Text: string(text)})
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Version < snaps[j].Version })
	return snaps, nil
}

func versionPrefix(filename string) string {
	base := filename[:len(filename)-len(filepath.Ext(filename))]
	for i := 0; i < len(base); i++ {
		if base[i] == '_' {
			return base[:i]
		}
	}
	return base
}

// FindMatchingSnapshot normalizes liveDDL and every snapshot, checks for an
// exact normalized match first, then falls back to the best fuzzy
// similarity ratio against threshold. threshold <= 0 uses
// DefaultSimilarityThreshold.
func FindMatchingSnapshot(liveDDL string, snapshots []Snapshot, threshold float64) MatchResult {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}

	liveNorm := normalize.Normalize(liveDDL)
	liveHash := normalize.Hash(liveNorm)

	for _, s := range snapshots {
		if normalize.Hash(normalize.Normalize(s.Text)) == liveHash {
			return MatchResult{Matched: true, Version: s.Version, Ratio: 1.0}
		}
	}

	var best Snapshot
	bestRatio := -1.0
	for _, s := range snapshots {
		ratio := normalize.SimilarityRatio(liveNorm, normalize.Normalize(s.Text))
		if ratio > bestRatio {
			bestRatio = ratio
			best = s
		}
	}

	if bestRatio >= threshold {
		return MatchResult{Matched: true, Version: best.Version, Ratio: bestRatio}
	}
	return MatchResult{Matched: false, BestNearMiss: best.Version, BestNearRatio: bestRatio}
}
