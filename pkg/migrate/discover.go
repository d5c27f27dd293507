package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/fraiseql/confiture-sub001/pkg/errcat"
)

// filenameRe matches `<version>_<name>.up.sql` / `.down.sql`, grounded on
// the original's `base_name.split("_", 1)` version/name split: everything
// up to the first underscore is the version, everything after is the name.
var filenameRe = regexp.MustCompile(`^([^_]+)_(.+)\.(up|down)\.sql$`)

// Discover reads dir for `<version>_<name>.up.sql` / `.down.sql` pairs and
// returns them as Units sorted by version. Every up file must have a
// matching down file with the same version and name; a broken pairing
// fails discovery entirely rather than silently dropping the unit.
func Discover(dir string) ([]Unit, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &errcat.ConfigError{
			Code:    "MIGR_001",
			Message: fmt.Sprintf("cannot read migrations directory %q: %v", dir, err),
		}
	}

	type half struct {
		up, down string
		hasUp    bool
		hasDown  bool
	}
	byKey := make(map[string]*half) // key: version + "\x00" + name

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := filenameRe.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		version, name, side := m[1], m[2], m[3]
		key := version + "\x00" + name
		h, ok := byKey[key]
		if !ok {
			h = &half{}
			byKey[key] = h
		}
		full := filepath.Join(dir, e.Name())
		switch side {
		case "up":
			h.up, h.hasUp = full, true
		case "down":
			h.down, h.hasDown = full, true
		}
	}

	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	units := make([]Unit, 0, len(keys))
	for _, key := range keys {
		h := byKey[key]
		parts := strings.SplitN(key, "\x00", 2)
		version, name := parts[0], parts[1]

		if !h.hasUp {
			return nil, &errcat.ConfigError{
				Code:    "MIGR_002",
				Message: fmt.Sprintf("migration %s_%s has a down file but no up file", version, name),
				Ctx:     errcat.Context{"version": version, "name": name},
			}
		}
		if !h.hasDown {
			return nil, &errcat.ConfigError{
				Code:    "MIGR_003",
				Message: fmt.Sprintf("migration %s_%s has an up file but no down file", version, name),
				Ctx:     errcat.Context{"version": version, "name": name},
			}
		}

		upText, err := os.ReadFile(h.up)
		if err != nil {
			return nil, &errcat.ConfigError{Code: "MIGR_004", Message: err.Error()}
		}
		downText, err := os.ReadFile(h.down)
		if err != nil {
			return nil, &errcat.ConfigError{Code: "MIGR_004", Message: err.Error()}
		}

		units = append(units, Unit{
			Version:  version,
			Name:     name,
			Up:       string(upText),
			Down:     string(downText),
			Strategy: DetectStrategy(string(upText)),
		})
	}

	sort.SliceStable(units, func(i, j int) bool {
		return CompareVersions(units[i].Version, units[j].Version) < 0
	})

	if err := checkConflicts(units); err != nil {
		return nil, err
	}
	return units, nil
}

// checkConflicts rejects duplicate versions and duplicate names across
// distinct versions (MigrationError{DuplicateVersion} and
// MigrationError{NameConflict}).
func checkConflicts(units []Unit) error {
	seenVersion := make(map[string]bool, len(units))
	seenName := make(map[string]string, len(units)) // name -> first version seen with it
	for _, u := range units {
		if seenVersion[u.Version] {
			return &errcat.MigrationError{Kind: errcat.KindDuplicateVersion, Version: u.Version}
		}
		seenVersion[u.Version] = true

		if firstVersion, ok := seenName[u.Name]; ok && firstVersion != u.Version {
			return &errcat.MigrationError{Kind: errcat.KindNameConflict, Version: u.Version, Unit: u.Name}
		}
		seenName[u.Name] = u.Version
	}
	return nil
}
