package file

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
)

// readDoc unmarshals one JSON document, mapping a missing file to notFound.
func readDoc(filePath string, out any, notFound error) error {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return notFound
		}

		return fmt.Errorf("failed to read %s: %w", filePath, err)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", filePath, err)
	}

	return nil
}

// writeDoc marshals a JSON document, creating the parent directory on demand.
func writeDoc(filePath string, in any) error {
	if err := os.MkdirAll(path.Dir(filePath), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", filePath, err)
	}

	raw, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filePath, err)
	}

	if err := os.WriteFile(filePath, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filePath, err)
	}

	return nil
}

// listJSONFiles globs *.json file names inside dir; a missing dir is an empty list.
func listJSONFiles(dir string) ([]string, error) {
	root := os.DirFS(dir)

	names, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	return names, nil
}

// removeDoc deletes a document, mapping a missing file to notFound.
func removeDoc(filePath string, notFound error) error {
	err := os.Remove(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return notFound
		}

		return fmt.Errorf("failed to delete %s: %w", filePath, err)
	}

	return nil
}
