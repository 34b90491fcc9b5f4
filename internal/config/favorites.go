package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// LoadFavorites reads the favorites file: one hex address per line, with
// blank lines and #-comments ignored. A missing file means no favorites.
func LoadFavorites(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read favorites file: %w", err)
	}

	var hexes []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		hexes = append(hexes, strings.ToLower(line))
	}
	return hexes, nil
}

// SaveFavorites writes the favorites file, sorted for stable diffs.
func SaveFavorites(path string, hexes []string) error {
	sorted := append([]string(nil), hexes...)
	sort.Strings(sorted)

	var b strings.Builder
	for _, hex := range sorted {
		b.WriteString(hex)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write favorites file: %w", err)
	}
	return nil
}
