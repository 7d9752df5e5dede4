package storage

import "farmLedger/internal/model"

// Storage defines a sink for operation results.
type Storage interface {
	PutResultBatch(results []model.OpResult) error
}
