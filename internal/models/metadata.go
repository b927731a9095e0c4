package models

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Reserved metadata keys. Extra keys must not collide with these.
const (
	KeyID         = "id"
	KeyFilename   = "filename"
	KeyLength     = "length"
	KeyFileType   = "file_type"
	KeyChunkID    = "chunk_id"
	KeyChunkIndex = "chunk_index"
	KeyChunkIDs   = "chunk_ids"
)

var reservedKeys = map[string]bool{
	KeyID:         true,
	KeyFilename:   true,
	KeyLength:     true,
	KeyFileType:   true,
	KeyChunkID:    true,
	KeyChunkIndex: true,
	KeyChunkIDs:   true,
}

// Metadata is the structured metadata stored with every index entry.
// ID, Filename and Length are always present; chunk fields are set only on chunks
// (ChunkID, ChunkIndex) or on chunked parent records (ChunkIDs). Extra carries
// caller-supplied scalar fields.
type Metadata struct {
	ID         string
	Filename   string
	Length     int
	FileType   string
	ChunkID    string
	ChunkIndex *int
	ChunkIDs   []string
	Extra      map[string]any
}

// Validate checks the required fields and that every extra value is a scalar.
func (m *Metadata) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("%w: metadata id is required", ErrInvalidArgument)
	}
	if m.Length < 0 {
		return fmt.Errorf("%w: metadata length must not be negative", ErrInvalidArgument)
	}
	if m.ChunkIndex != nil && *m.ChunkIndex < 0 {
		return fmt.Errorf("%w: chunk_index must not be negative", ErrInvalidArgument)
	}
	for k, v := range m.Extra {
		if reservedKeys[k] {
			return fmt.Errorf("%w: metadata key %q is reserved", ErrInvalidArgument, k)
		}
		if !isScalar(v) {
			return fmt.Errorf("%w: metadata key %q has non-scalar value %T", ErrInvalidArgument, k, v)
		}
	}
	return nil
}

func isScalar(v any) bool {
	switch v.(type) {
	case nil, string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number:
		return true
	default:
		return false
	}
}

// Clone returns a deep copy of m.
func (m Metadata) Clone() Metadata {
	out := m
	if m.ChunkIndex != nil {
		idx := *m.ChunkIndex
		out.ChunkIndex = &idx
	}
	if m.ChunkIDs != nil {
		out.ChunkIDs = append([]string(nil), m.ChunkIDs...)
	}
	if m.Extra != nil {
		out.Extra = make(map[string]any, len(m.Extra))
		for k, v := range m.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// ForChunk returns a copy of the parent metadata carrying the chunk id and index.
func (m Metadata) ForChunk(chunkID string, index int) Metadata {
	out := m.Clone()
	out.ChunkID = chunkID
	out.ChunkIndex = &index
	out.ChunkIDs = nil
	return out
}

// Map flattens the metadata into a single key/value map.
func (m Metadata) Map() map[string]any {
	out := make(map[string]any, len(m.Extra)+7)
	for k, v := range m.Extra {
		out[k] = v
	}
	out[KeyID] = m.ID
	out[KeyFilename] = m.Filename
	out[KeyLength] = m.Length
	if m.FileType != "" {
		out[KeyFileType] = m.FileType
	}
	if m.ChunkID != "" {
		out[KeyChunkID] = m.ChunkID
	}
	if m.ChunkIndex != nil {
		out[KeyChunkIndex] = *m.ChunkIndex
	}
	if m.ChunkIDs != nil {
		out[KeyChunkIDs] = append([]string(nil), m.ChunkIDs...)
	}
	return out
}

// ExtraKeys returns the extra keys in sorted order.
func (m Metadata) ExtraKeys() []string {
	keys := make([]string, 0, len(m.Extra))
	for k := range m.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MarshalJSON encodes the metadata as one flat JSON object.
func (m Metadata) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Map())
}

// UnmarshalJSON decodes a flat JSON object, routing reserved keys to their fields.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := Metadata{}
	for k, v := range raw {
		var err error
		switch k {
		case KeyID:
			err = json.Unmarshal(v, &out.ID)
		case KeyFilename:
			err = json.Unmarshal(v, &out.Filename)
		case KeyLength:
			err = json.Unmarshal(v, &out.Length)
		case KeyFileType:
			err = json.Unmarshal(v, &out.FileType)
		case KeyChunkID:
			err = json.Unmarshal(v, &out.ChunkID)
		case KeyChunkIndex:
			var idx int
			if err = json.Unmarshal(v, &idx); err == nil {
				out.ChunkIndex = &idx
			}
		case KeyChunkIDs:
			err = json.Unmarshal(v, &out.ChunkIDs)
		default:
			var val any
			if err = json.Unmarshal(v, &val); err == nil {
				if out.Extra == nil {
					out.Extra = make(map[string]any)
				}
				out.Extra[k] = val
			}
		}
		if err != nil {
			return fmt.Errorf("metadata key %q: %w", k, err)
		}
	}
	*m = out
	return nil
}
