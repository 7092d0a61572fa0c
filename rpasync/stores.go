package rpasync

import (
	"context"

	"github.com/docuconta/books_backend/models"
)

// ActionStore is the persistence seam for RpaAction rows.
type ActionStore interface {
	Create(ctx context.Context, action *models.RpaAction) error
	LatestForDocument(ctx context.Context, documentId int, actionType string) (*models.RpaAction, error)
	Pending(ctx context.Context, actionType string) ([]models.RpaAction, error)
	TerminalizeIfPending(ctx context.Context, actionId int, status models.RpaActionStatus, result models.RpaActionResult) (bool, error)
}

// DocumentStore reads processed documents and their extracted fields.
type DocumentStore interface {
	ProcessedWithExtraction(ctx context.Context, documentId int) (*models.Document, *models.ExtractedInvoice, error)
}

type gormActionStore struct{}

func NewActionStore() ActionStore { return gormActionStore{} }

func (gormActionStore) Create(ctx context.Context, action *models.RpaAction) error {
	return models.CreateRpaAction(ctx, action)
}

func (gormActionStore) LatestForDocument(ctx context.Context, documentId int, actionType string) (*models.RpaAction, error) {
	return models.GetLatestRpaActionForDocument(ctx, documentId, actionType)
}

func (gormActionStore) Pending(ctx context.Context, actionType string) ([]models.RpaAction, error) {
	return models.GetPendingRpaActions(ctx, actionType)
}

func (gormActionStore) TerminalizeIfPending(ctx context.Context, actionId int, status models.RpaActionStatus, result models.RpaActionResult) (bool, error) {
	return models.TerminalizeRpaActionIfPending(ctx, actionId, status, result)
}

type gormDocumentStore struct{}

func NewDocumentStore() DocumentStore { return gormDocumentStore{} }

func (gormDocumentStore) ProcessedWithExtraction(ctx context.Context, documentId int) (*models.Document, *models.ExtractedInvoice, error) {
	return models.GetProcessedDocumentWithExtraction(ctx, documentId)
}
