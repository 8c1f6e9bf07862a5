// Package state encodes a graph document into named JSON buckets, the row
// layout shared by the SQL graph stores.
package state

import (
	"encoding/json"
	"fmt"
	"time"

	"pathwaycore/pkg/domain"
)

// Bucket names, in write order.
const (
	BucketMeta        = "meta"
	BucketResources   = "resources"
	BucketSpecies     = "species"
	BucketPathways    = "pathways"
	BucketEntities    = "entities"
	BucketInteractors = "interactors"
)

// Buckets lists every bucket written by Encode.
var Buckets = []string{BucketMeta, BucketResources, BucketSpecies, BucketPathways, BucketEntities, BucketInteractors}

type meta struct {
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
}

// Encode normalizes doc and splits it into one JSON payload per bucket.
func Encode(doc domain.GraphDocument) (map[string][]byte, error) {
	doc = doc.Normalize()
	out := make(map[string][]byte, len(Buckets))
	for _, bucket := range Buckets {
		var (
			data []byte
			err  error
		)
		switch bucket {
		case BucketMeta:
			data, err = json.Marshal(meta{Version: doc.Version, CreatedAt: doc.CreatedAt})
		case BucketResources:
			data, err = json.Marshal(doc.Resources)
		case BucketSpecies:
			data, err = json.Marshal(doc.Species)
		case BucketPathways:
			data, err = json.Marshal(doc.Pathways)
		case BucketEntities:
			data, err = json.Marshal(doc.Entities)
		case BucketInteractors:
			data, err = json.Marshal(doc.Interactors)
		}
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", bucket, err)
		}
		out[bucket] = data
	}
	return out, nil
}

// Decode reassembles a document from bucket payloads. Unknown buckets are
// ignored. It returns domain.ErrGraphNotStored when the meta bucket is
// missing.
func Decode(raw map[string][]byte) (domain.GraphDocument, error) {
	if len(raw[BucketMeta]) == 0 {
		return domain.GraphDocument{}, domain.ErrGraphNotStored
	}
	var (
		doc domain.GraphDocument
		m   meta
	)
	targets := map[string]any{
		BucketMeta:        &m,
		BucketResources:   &doc.Resources,
		BucketSpecies:     &doc.Species,
		BucketPathways:    &doc.Pathways,
		BucketEntities:    &doc.Entities,
		BucketInteractors: &doc.Interactors,
	}
	for bucket, payload := range raw {
		target, ok := targets[bucket]
		if !ok || len(payload) == 0 {
			continue
		}
		if err := json.Unmarshal(payload, target); err != nil {
			return domain.GraphDocument{}, fmt.Errorf("decode %s: %w", bucket, err)
		}
	}
	doc.Version = m.Version
	doc.CreatedAt = m.CreatedAt
	return doc.Normalize(), nil
}
