package storage

import (
	"context"
	"encoding/binary"
	"math"

	"github.com/dshills/recall-mcp/pkg/types"
)

// RecordStore defines the interface for persisting experience records.
// The search pipeline only reads; capture and the re-embedding migrator
// are the writers.
type RecordStore interface {
	// Record operations
	SaveRecord(ctx context.Context, record *types.ExperienceRecord) error
	GetRecord(ctx context.Context, id string) (*types.ExperienceRecord, error)
	GetAllRecords(ctx context.Context) ([]*types.ExperienceRecord, error)
	DeleteRecord(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)

	// Database operations
	Close() error
}

// serializeVector converts a float32 slice into a little-endian byte blob.
// A nil vector serializes to nil so the column stays NULL.
func serializeVector(vector []float32) []byte {
	if vector == nil {
		return nil
	}
	buf := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// deserializeVector converts a little-endian byte blob back into floats.
// An empty or nil blob yields a nil vector.
func deserializeVector(blob []byte) []float32 {
	if len(blob) < 4 {
		return nil
	}
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vector
}
