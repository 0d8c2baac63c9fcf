package store

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"time"
)

// StoreRawPayload stores a compressed response body for a run.
// Returns the payload ID, or 0 if an identical body is already stored.
func (s *Store) StoreRawPayload(runID int64, kind, location string, payload []byte) (int64, error) {
	compressed, err := compress(payload)
	if err != nil {
		return 0, err
	}

	result, err := s.db.Exec(`
		INSERT INTO raw_payloads
		(fetch_run_id, fetched_at, kind, location, payload_compressed, payload_hash, schema_version)
		VALUES (?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(payload_hash) DO NOTHING
	`, runID, time.Now().UTC(), kind, location, compressed, PayloadHash(payload))
	if err != nil {
		return 0, fmt.Errorf("insert raw payload: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}
	return result.LastInsertId()
}

// PayloadHash is the deduplication key of a response body.
func PayloadHash(payload []byte) string {
	hash := sha256.Sum256(payload)
	return hex.EncodeToString(hash[:])
}

// GetRawPayload retrieves and decompresses a stored payload by ID.
func (s *Store) GetRawPayload(id int64) ([]byte, error) {
	var compressed []byte
	err := s.db.QueryRow(`SELECT payload_compressed FROM raw_payloads WHERE id = ?`, id).
		Scan(&compressed)
	if err != nil {
		return nil, err
	}
	return decompress(compressed)
}

// GetRunPayload returns the body fetched by a run, following the run's hash
// when the body duplicated an earlier payload. Returns nil if none was stored.
func (s *Store) GetRunPayload(runID int64) ([]byte, error) {
	var compressed []byte
	err := s.db.QueryRow(`
		SELECT p.payload_compressed
		FROM fetch_runs r
		JOIN raw_payloads p ON p.payload_hash = r.payload_hash
		WHERE r.id = ?
	`, runID).Scan(&compressed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decompress(compressed)
}

func compress(payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(payload); err != nil {
		return nil, fmt.Errorf("compress payload: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("close gzip: %w", err)
	}
	return buf.Bytes(), nil
}

func decompress(compressed []byte) ([]byte, error) {
	gz, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("create gzip reader: %w", err)
	}
	defer gz.Close()
	return io.ReadAll(gz)
}
