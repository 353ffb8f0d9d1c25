package store

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// Embedding is an opaque per-file float vector plus the provider that
// produced it. Semantic meaning and similarity search over it belong to
// an external collaborator; this store only persists the payload.
type Embedding struct {
	FileID    string
	Vector    []float32
	Provider  string
	CreatedAt time.Time
}

// encodeVector packs a []float32 as raw little-endian bytes, 4 per
// element, no header. Element count on read is len/4.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// decodeVector unpacks a raw little-endian float32 blob.
func decodeVector(buf []byte) []float32 {
	n := len(buf) / 4
	vec := make([]float32, n)
	for i := 0; i < n; i++ {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}

// SaveEmbedding stores or replaces the embedding for a file.
func (db *DB) SaveEmbedding(fileID string, vec []float32, provider string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	now := formatTime(time.Now())
	blob := encodeVector(vec)
	_, err := db.conn.Exec(`
		INSERT INTO file_embeddings (file_id, embedding, provider, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(file_id) DO UPDATE SET embedding = excluded.embedding,
			provider = excluded.provider, created_at = excluded.created_at
	`, fileID, blob, provider, now)
	if err != nil {
		return fmt.Errorf("save embedding: %w", err)
	}
	return nil
}

// GetEmbedding returns the embedding for a file, or nil if none is
// stored.
func (db *DB) GetEmbedding(fileID string) (*Embedding, error) {
	var e Embedding
	var blob []byte
	var created string
	err := db.conn.QueryRow(`
		SELECT file_id, embedding, provider, created_at FROM file_embeddings WHERE file_id = ?
	`, fileID).Scan(&e.FileID, &blob, &e.Provider, &created)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get embedding: %w", err)
	}
	e.Vector = decodeVector(blob)
	e.CreatedAt = parseTime(created)
	return &e, nil
}

// DeleteEmbedding removes a file's embedding. Deleting the file itself
// cascades here, so this is only needed to drop a vector on its own.
func (db *DB) DeleteEmbedding(fileID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, err := db.conn.Exec(`DELETE FROM file_embeddings WHERE file_id = ?`, fileID); err != nil {
		return fmt.Errorf("delete embedding: %w", err)
	}
	return nil
}
