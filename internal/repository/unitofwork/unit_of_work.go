package unitofwork

import (
	"context"

	"procedure-qa-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	DocumentRepository() contract.DocumentRepository
	ChunkRepository() contract.ChunkRepository
	RouteExampleRepository() contract.RouteExampleRepository
}
