// Package vector provides an in-memory brute-force index; the pack's ANN
// alternatives need cgo or an external server, and brute force is exact.
package vector

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/andina-labs/yachay/internal/models"
)

type entry struct {
	id     string
	vec    []float32
	meta   map[string]string
	active bool
}

// MemoryIndex is an in-memory vector index using brute-force inner product
// search (cosine similarity on normalized vectors). Writers take an exclusive
// lock scoped to the mutation; searches share a read lock.
type MemoryIndex struct {
	dimensions int
	entries    []entry
	byID       map[string]int
	mu         sync.RWMutex
}

// NewMemoryIndex creates an in-memory vector index with the given dimension.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, models.NewConfigurationError("embedding_dimension", "must be positive, got %d", dimensions)
	}
	return &MemoryIndex{
		dimensions: dimensions,
		byID:       make(map[string]int),
	}, nil
}

// Insert appends a vector with its chunk ID and denormalized metadata.
// Re-inserting an existing ID deactivates the prior entry first.
func (m *MemoryIndex) Insert(ctx context.Context, chunkID string, vec []float32, meta map[string]string) error {
	if len(vec) != m.dimensions {
		return &models.DimensionMismatchError{Want: m.dimensions, Got: len(vec)}
	}
	cp := make([]float32, m.dimensions)
	copy(cp, vec)
	metaCp := make(map[string]string, len(meta))
	for k, v := range meta {
		metaCp[k] = v
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.byID[chunkID]; ok {
		m.entries[prev].active = false
	}
	m.entries = append(m.entries, entry{id: chunkID, vec: cp, meta: metaCp, active: true})
	m.byID[chunkID] = len(m.entries) - 1
	return nil
}

// Search returns at most k active entries ordered descending by cosine score.
// Ties break by insertion order (stable). Entries failing the filter are
// excluded before ranking.
func (m *MemoryIndex) Search(ctx context.Context, query []float32, k int, filter models.MetadataFilter) ([]*Result, error) {
	if len(query) != m.dimensions {
		return nil, &models.DimensionMismatchError{Want: m.dimensions, Got: len(query)}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 || len(m.entries) == 0 {
		return nil, nil
	}
	scored := make([]*Result, 0, len(m.entries))
	for i := range m.entries {
		e := &m.entries[i]
		if !e.active || !filter.Matches(e.meta) {
			continue
		}
		var dot float64
		for j := 0; j < m.dimensions; j++ {
			dot += float64(query[j] * e.vec[j])
		}
		scored = append(scored, &Result{ChunkID: e.id, Score: dot})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

// Deactivate marks entries inactive so search excludes them. Used when a
// re-ingested document supersedes prior chunks.
func (m *MemoryIndex) Deactivate(ctx context.Context, chunkIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range chunkIDs {
		if i, ok := m.byID[id]; ok {
			m.entries[i].active = false
		}
	}
	return nil
}

// Save persists the index to path. Format: dimensions (4), n (4), then per
// entry: idLen (4), id, active (1), metaLen (4), meta JSON, vector bytes.
func (m *MemoryIndex) Save(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer f.Close()
	if err := binary.Write(f, binary.LittleEndian, uint32(m.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(f, binary.LittleEndian, uint32(len(m.entries))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for i := range m.entries {
		e := &m.entries[i]
		if err := writeBytes(f, []byte(e.id)); err != nil {
			return fmt.Errorf("write id: %w", err)
		}
		active := byte(0)
		if e.active {
			active = 1
		}
		if _, err := f.Write([]byte{active}); err != nil {
			return fmt.Errorf("write active flag: %w", err)
		}
		metaJSON, err := json.Marshal(e.meta)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		if err := writeBytes(f, metaJSON); err != nil {
			return fmt.Errorf("write metadata: %w", err)
		}
		if _, err := f.Write(float32SliceToBytes(e.vec)); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return nil
}

// Load reads the index from path and replaces the in-memory contents.
// Dimensions must match. A missing file leaves the index unchanged.
func (m *MemoryIndex) Load(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()
	var dim, n uint32
	if err := binary.Read(f, binary.LittleEndian, &dim); err != nil {
		return fmt.Errorf("read dimensions: %w", err)
	}
	if int(dim) != m.dimensions {
		return &models.DimensionMismatchError{Want: m.dimensions, Got: int(dim)}
	}
	if err := binary.Read(f, binary.LittleEndian, &n); err != nil {
		return fmt.Errorf("read count: %w", err)
	}
	entries := make([]entry, 0, n)
	byID := make(map[string]int, n)
	vecBuf := make([]byte, m.dimensions*4)
	for i := uint32(0); i < n; i++ {
		idBytes, err := readBytes(f)
		if err != nil {
			return fmt.Errorf("read id: %w", err)
		}
		activeBuf := make([]byte, 1)
		if _, err := io.ReadFull(f, activeBuf); err != nil {
			return fmt.Errorf("read active flag: %w", err)
		}
		metaJSON, err := readBytes(f)
		if err != nil {
			return fmt.Errorf("read metadata: %w", err)
		}
		var meta map[string]string
		if err := json.Unmarshal(metaJSON, &meta); err != nil {
			return fmt.Errorf("unmarshal metadata: %w", err)
		}
		if _, err := io.ReadFull(f, vecBuf); err != nil {
			return fmt.Errorf("read vector: %w", err)
		}
		e := entry{
			id:     string(idBytes),
			vec:    bytesToFloat32Slice(vecBuf),
			meta:   meta,
			active: activeBuf[0] == 1,
		}
		entries = append(entries, e)
		byID[e.id] = len(entries) - 1
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = entries
	m.byID = byID
	return nil
}

// Size returns the number of active vectors in the index.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for i := range m.entries {
		if m.entries[i].active {
			n++
		}
	}
	return n
}

// Dimensions returns the fixed dimensionality of the index.
func (m *MemoryIndex) Dimensions() int { return m.dimensions }

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error { return nil }

func writeBytes(f *os.File, b []byte) error {
	if err := binary.Write(f, binary.LittleEndian, uint32(len(b))); err != nil {
		return err
	}
	_, err := f.Write(b)
	return err
}

func readBytes(f *os.File) ([]byte, error) {
	var n uint32
	if err := binary.Read(f, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(f, b); err != nil {
		return nil, err
	}
	return b, nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
