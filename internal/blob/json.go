package blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
)

const jsonContentType = "application/json"

// PutJSON encodes v and writes it under key, replacing any previous blob.
func PutJSON(ctx context.Context, s Store, key string, v any, metadata map[string]string) (Info, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return Info{}, fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Put(ctx, key, bytes.NewReader(buf.Bytes()), PutOptions{ContentType: jsonContentType, Metadata: metadata, Overwrite: true})
}

// GetJSON reads key and decodes it into v. Missing keys yield ErrNotFound.
func GetJSON(ctx context.Context, s Store, key string, v any) (Info, error) {
	info, rc, err := s.Get(ctx, key)
	if err != nil {
		return Info{}, err
	}
	defer func() { _ = rc.Close() }()
	// Read to EOF so backends that verify content get to do so.
	data, err := io.ReadAll(rc)
	if err != nil {
		return Info{}, fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return Info{}, fmt.Errorf("decode %s: %w", key, err)
	}
	return info, nil
}
