package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ibeckermayer/feedsync/internal/config"
)

// StepName identifies a run output for caching purposes.
type StepName string

const (
	StepRecords   StepName = "records"
	StepSynced    StepName = "synced"
	StepAnalytics StepName = "analytics"
)

// stepDir returns the cache directory for a given step.
func stepDir(step StepName) (string, error) {
	cacheDir, err := config.CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, string(step)), nil
}

// generateFilename creates a timestamped filename with the given extension.
// Names sort chronologically.
func generateFilename(ext string) string {
	return time.Now().Format("2006-01-02T15-04-05.000000000") + ext
}

// SaveStepOutput saves JSON-serializable data to the step's cache directory.
// Returns the path to the saved file.
func SaveStepOutput[T any](step StepName, data T) (string, error) {
	dir, err := stepDir(step)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create step cache dir: %w", err)
	}

	path := filepath.Join(dir, generateFilename(".json"))

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal step output: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return "", fmt.Errorf("failed to write step output: %w", err)
	}

	return path, nil
}

// LoadLatestStepOutput loads the most recent output from a step's cache directory.
// Returns the data, the filepath it was loaded from, and any error.
func LoadLatestStepOutput[T any](step StepName) (T, string, error) {
	var zero T

	latestPath, err := LatestStepFile(step)
	if err != nil {
		return zero, "", err
	}

	data, err := LoadStepOutput[T](latestPath)
	if err != nil {
		return zero, "", err
	}

	return data, latestPath, nil
}

// LoadStepOutput loads JSON data from a specific file path.
func LoadStepOutput[T any](filepath string) (T, error) {
	var data T

	jsonData, err := os.ReadFile(filepath)
	if err != nil {
		return data, fmt.Errorf("failed to read step output: %w", err)
	}

	if err := json.Unmarshal(jsonData, &data); err != nil {
		return data, fmt.Errorf("failed to unmarshal step output: %w", err)
	}

	return data, nil
}

// LatestStepFile returns the path to the most recent file in a step's cache directory.
func LatestStepFile(step StepName) (string, error) {
	files, err := stepFiles(step)
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", fmt.Errorf("no cached output for step %s", step)
	}
	return files[len(files)-1], nil
}

// PruneStepOutputs deletes all but the newest keep files of a step
func PruneStepOutputs(step StepName, keep int) (int, error) {
	files, err := stepFiles(step)
	if err != nil || len(files) <= keep {
		return 0, err
	}
	removed := 0
	for _, f := range files[:len(files)-keep] {
		if err := os.Remove(f); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// stepFiles lists a step's cached files oldest first. Names are timestamps,
// so os.ReadDir's name order is chronological.
func stepFiles(step StepName) ([]string, error) {
	dir, err := stepDir(step)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".json" {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	return files, nil
}
