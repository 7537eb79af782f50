package backup

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Format version constants.
const (
	FormatV1 = 1
	FormatV2 = 2
)

// MaxDecompressedSize is the maximum allowed size of decompressed backup data (50MB).
const MaxDecompressedSize = 50 * 1024 * 1024

// Header is the plain-text first line of a V2 backup file.
type Header struct {
	Version       int               `json:"version"`
	CreatedAt     time.Time         `json:"created_at"`
	Checksum      string            `json:"checksum"`
	FeedbackCount int               `json:"feedback_count"`
	AttemptCount  int               `json:"attempt_count"`
	ScenarioCount int               `json:"scenario_count"`
	Compressed    bool              `json:"compressed"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// DetectFormat reads the first line of a file to determine V1 vs V2.
// V2 files have a header line with "version":2. V1 files are plain JSON starting with '{'.
func DetectFormat(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("reading first line: %w", err)
	}

	firstLine := strings.TrimSpace(line)
	if firstLine == "" {
		return 0, fmt.Errorf("file is empty")
	}

	var header Header
	if err := json.Unmarshal([]byte(firstLine), &header); err == nil && header.Version == FormatV2 {
		return FormatV2, nil
	}

	if firstLine[0] == '{' {
		return FormatV1, nil
	}

	return 0, fmt.Errorf("unrecognized backup format")
}

// WriteV2 writes an Archive as a V2 file: header line + gzip-compressed payload.
func WriteV2(path string, a *Archive) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}

	var compressed bytes.Buffer
	gzw, err := gzip.NewWriterLevel(&compressed, gzip.DefaultCompression)
	if err != nil {
		return fmt.Errorf("creating gzip writer: %w", err)
	}
	if _, err := gzw.Write(payload); err != nil {
		return fmt.Errorf("compressing payload: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return fmt.Errorf("closing gzip writer: %w", err)
	}

	header := Header{
		Version:       FormatV2,
		CreatedAt:     a.CreatedAt,
		Checksum:      checksum(compressed.Bytes()),
		FeedbackCount: len(a.History.Feedback),
		AttemptCount:  len(a.History.QuizAttempts),
		ScenarioCount: len(a.History.Scenarios),
		Compressed:    true,
	}
	headerBytes, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("marshaling header: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(headerBytes, '\n')); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if _, err := f.Write(compressed.Bytes()); err != nil {
		return fmt.Errorf("writing compressed payload: %w", err)
	}
	return f.Close()
}

// ReadV2 reads a V2 backup file, verifies the checksum, and decompresses the payload.
func ReadV2(path string) (*Archive, error) {
	header, compressedData, err := readV2Parts(path)
	if err != nil {
		return nil, err
	}
	if err := verify(header, compressedData); err != nil {
		return nil, err
	}

	gzr, err := gzip.NewReader(bytes.NewReader(compressedData))
	if err != nil {
		return nil, fmt.Errorf("creating gzip reader: %w", err)
	}
	defer gzr.Close()

	decompressed, err := io.ReadAll(io.LimitReader(gzr, MaxDecompressedSize+1))
	if err != nil {
		return nil, fmt.Errorf("decompressing payload: %w", err)
	}
	if int64(len(decompressed)) > MaxDecompressedSize {
		return nil, fmt.Errorf("decompressed payload exceeds maximum size of %d bytes", MaxDecompressedSize)
	}

	var archive Archive
	if err := json.Unmarshal(decompressed, &archive); err != nil {
		return nil, fmt.Errorf("parsing backup data: %w", err)
	}
	return &archive, nil
}

// ReadV2Header reads only the header line from a V2 backup file without decompressing.
func ReadV2Header(path string) (*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	return readHeader(bufio.NewReader(f))
}

// VerifyChecksum checks the integrity of a V2 backup file without decompressing it.
func VerifyChecksum(path string) error {
	header, compressedData, err := readV2Parts(path)
	if err != nil {
		return err
	}
	return verify(header, compressedData)
}

func readV2Parts(path string) (*Header, []byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	header, err := readHeader(reader)
	if err != nil {
		return nil, nil, err
	}

	compressedData, err := io.ReadAll(reader)
	if err != nil {
		return nil, nil, fmt.Errorf("reading compressed payload: %w", err)
	}
	return header, compressedData, nil
}

func readHeader(reader *bufio.Reader) (*Header, error) {
	headerLine, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("reading header line: %w", err)
	}

	var header Header
	if err := json.Unmarshal(bytes.TrimSpace(headerLine), &header); err != nil {
		return nil, fmt.Errorf("parsing header: %w", err)
	}
	if header.Version != FormatV2 {
		return nil, fmt.Errorf("expected V2 format, got version %d", header.Version)
	}
	return &header, nil
}

func verify(header *Header, compressedData []byte) error {
	if actual := checksum(compressedData); actual != header.Checksum {
		return fmt.Errorf("checksum mismatch: expected %s, got %s", header.Checksum, actual)
	}
	return nil
}

func checksum(data []byte) string {
	hash := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(hash[:])
}
