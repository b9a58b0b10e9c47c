// Package db holds the DataStore adapters: Elasticsearch for deployments and
// an embedded Badger store for single-node and local runs.
package db

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/ternarybob/arbor"

	"placefinder/src/common"
	"placefinder/src/types"
)

// NewStore opens the backend named by config.Backend.
func NewStore(ctx context.Context, config common.StorageConfig, logger arbor.ILogger) (types.DataStore, error) {
	switch config.Backend {
	case "", "elastic":
		store, err := NewElasticStore(config.Elastic, logger)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureIndices(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil
	case "badger":
		return NewBadgerStore(config.Badger, logger)
	default:
		return nil, common.Configuration("unknown storage backend %q", config.Backend)
	}
}

// pageBounds validates a store range. Offsets are clamped upstream; this
// guards direct callers.
func pageBounds(offset, limit int) (int, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		return 0, 0, errors.Newf("limit must be positive, got %d", limit)
	}
	return offset, limit, nil
}
