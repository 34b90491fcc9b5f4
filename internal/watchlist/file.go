package watchlist

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// fileEntry is the on-disk shape of one rule. Enabled, notify, and
// priority are pointers so an omitted key is distinguishable from an
// explicit false/zero.
type fileEntry struct {
	ID       string `toml:"id"`
	Label    string `toml:"label"`
	Match    string `toml:"match"`
	Value    string `toml:"value"`
	Mode     string `toml:"mode"`
	Enabled  *bool  `toml:"enabled"`
	Notify   *bool  `toml:"notify"`
	Priority *int64 `toml:"priority"`
}

type rulesFile struct {
	Watchlist []fileEntry `toml:"watchlist"`
}

// Load reads watchlist rules from a TOML file. A missing file is not an
// error: it means an empty watchlist. Rules default to enabled with
// notifications on and priority zero.
func Load(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read watchlist file: %w", err)
	}
	return Parse(data)
}

// Parse decodes watchlist rules from TOML bytes.
func Parse(data []byte) ([]Entry, error) {
	var file rulesFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse watchlist TOML: %w", err)
	}

	entries := make([]Entry, 0, len(file.Watchlist))
	for i, fe := range file.Watchlist {
		field, err := ParseField(fe.Match)
		if err != nil {
			return nil, fmt.Errorf("watchlist rule %d: %w", i+1, err)
		}
		mode, err := ParseMode(fe.Mode)
		if err != nil {
			return nil, fmt.Errorf("watchlist rule %d: %w", i+1, err)
		}

		e := Entry{
			ID:      fe.ID,
			Label:   fe.Label,
			Field:   field,
			Value:   fe.Value,
			Mode:    mode,
			Enabled: true,
			Notify:  true,
		}
		if fe.Enabled != nil {
			e.Enabled = *fe.Enabled
		}
		if fe.Notify != nil {
			e.Notify = *fe.Notify
		}
		if fe.Priority != nil {
			e.Priority = *fe.Priority
		}
		entries = append(entries, e)
	}
	return entries, nil
}
