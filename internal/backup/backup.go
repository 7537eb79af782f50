// Package backup exports and restores ecosim session history (feedback,
// quiz attempts and saved scenarios).
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/nvandessel/ecosim/internal/store"
)

// FilePrefix starts the name of every generated backup file.
const FilePrefix = "ecosim-backup-"

// Archive is the JSON payload of a backup file.
type Archive struct {
	Version   int            `json:"version"`
	CreatedAt time.Time      `json:"created_at"`
	History   store.Snapshot `json:"history"`
}

// DefaultDir returns the backup directory inside the ecosim data directory.
func DefaultDir(dataDir string) string {
	return filepath.Join(dataDir, "backups")
}

// Backup writes the store's full history to outputPath. Compressed backups
// use the V2 format; otherwise a plain indented V1 JSON file is written.
func Backup(ctx context.Context, s store.Store, outputPath string, compress bool) (*Archive, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot store: %w", err)
	}

	archive := &Archive{
		Version:   FormatV1,
		CreatedAt: time.Now().UTC(),
		History:   *snap,
	}

	if compress {
		archive.Version = FormatV2
		if err := WriteV2(outputPath, archive); err != nil {
			return nil, fmt.Errorf("failed to write backup: %w", err)
		}
		return archive, nil
	}

	if err := writeV1(outputPath, archive); err != nil {
		return nil, fmt.Errorf("failed to write backup: %w", err)
	}
	return archive, nil
}

func writeV1(path string, archive *Archive) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(archive); err != nil {
		return fmt.Errorf("encoding backup: %w", err)
	}
	return f.Close()
}

// Read loads a backup file of either format.
func Read(path string) (*Archive, error) {
	version, err := DetectFormat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to detect backup format: %w", err)
	}

	if version == FormatV2 {
		return ReadV2(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open backup file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxDecompressedSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read backup file: %w", err)
	}
	if int64(len(data)) > MaxDecompressedSize {
		return nil, fmt.Errorf("backup file exceeds maximum size of %d bytes", MaxDecompressedSize)
	}

	var archive Archive
	if err := json.Unmarshal(data, &archive); err != nil {
		return nil, fmt.Errorf("failed to decode backup: %w", err)
	}
	if archive.Version != FormatV1 {
		return nil, fmt.Errorf("unsupported backup version: %d", archive.Version)
	}
	return &archive, nil
}

// Restore imports a backup file into the store.
func Restore(ctx context.Context, s store.Store, inputPath string, mode store.RestoreMode) (*store.RestoreResult, error) {
	archive, err := Read(inputPath)
	if err != nil {
		return nil, err
	}

	result, err := s.Restore(ctx, &archive.History, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to restore history: %w", err)
	}
	return result, nil
}

// GeneratePath creates a timestamped backup filename in dir.
func GeneratePath(dir string, compress bool) string {
	ts := time.Now().Format("20060102-150405.000")
	ext := ".json"
	if compress {
		ext = ".json.gz"
	}
	return filepath.Join(dir, FilePrefix+ts+ext)
}
