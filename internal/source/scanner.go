package source

import (
	"os"
	"path/filepath"
	"strings"
)

// ScanDir walks an export directory and discovers billing files.
// Files directly in dir are named after their stem ("tencent.csv" is provider
// "tencent"); files in a subdirectory belong to that subdirectory's provider
// ("alibaba/2024-05.json" is provider "alibaba").
func ScanDir(dir string) ([]DiscoveredFile, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, nil
	}

	var files []DiscoveredFile

	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // intentionally skip unreadable entries
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		format := FormatFromPath(path)
		if format == FormatAuto {
			return nil
		}

		rel, _ := filepath.Rel(dir, path)
		parts := strings.Split(rel, string(filepath.Separator))
		provider := strings.TrimSuffix(parts[0], filepath.Ext(parts[0]))
		if len(parts) > 1 {
			provider = parts[0]
		}

		files = append(files, DiscoveredFile{
			Path:     path,
			Provider: strings.ToLower(provider),
			Format:   format,
		})
		return nil
	})

	return files, err
}

// FormatFromPath guesses a format from the file extension.
// JSON files are resolved between line items and daily maps when parsed.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".jsonl", ".ndjson":
		return FormatJSONL
	case ".csv":
		return FormatCSV
	default:
		return FormatAuto
	}
}

// CountProviders returns the number of unique providers in a set of discovered files.
func CountProviders(files []DiscoveredFile) int {
	seen := make(map[string]struct{})
	for _, f := range files {
		seen[f.Provider] = struct{}{}
	}
	return len(seen)
}
