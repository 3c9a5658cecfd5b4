package persist

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// ExportSnapshot writes snap to a standalone zstd-compressed JSON file, for
// handing a save to another process or keeping a copy outside the database.
func ExportSnapshot(path string, snap *EntitySnapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	bw := bufio.NewWriterSize(enc, 64*1024)

	doc := stamped(snap)
	if err := json.NewEncoder(bw).Encode(&doc); err != nil {
		_ = enc.Close()
		return fmt.Errorf("%w: encode snapshot: %w", ErrPersistence, err)
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return f.Sync()
}

// ImportSnapshot reads a file written by ExportSnapshot.
func ImportSnapshot(path string) (*EntitySnapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	defer dec.Close()

	var raw json.RawMessage
	if err := json.NewDecoder(bufio.NewReader(dec)).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decode snapshot: %w", ErrPersistence, err)
	}
	var snap EntitySnapshot
	if err := validateAndDecode(raw, KindEntities, &snap); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return &snap, nil
}
