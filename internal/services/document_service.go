package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-chat-backend/internal/domain"
	"github.com/tbourn/go-chat-backend/internal/ingest"
	"github.com/tbourn/go-chat-backend/internal/repo"
)

// DocumentPublisher is the subset of ingest.Queue the DocumentService
// depends on, so tests can swap in a no-op publisher.
type DocumentPublisher interface {
	Publish(ctx context.Context, job ingest.Job) error
}

// DocumentService handles medical document uploads and enqueues them for
// background OCR and extraction.
type DocumentService struct {
	DB    *gorm.DB
	Queue DocumentPublisher
}

// NewDocumentService wires a DocumentService from its collaborators.
func NewDocumentService(db *gorm.DB, queue DocumentPublisher) *DocumentService {
	return &DocumentService{DB: db, Queue: queue}
}

// Upload records an uploaded file's metadata and schedules it for
// ingestion. The caller is responsible for having already written
// filePath to disk.
func (s *DocumentService) Upload(ctx context.Context, userID, title, documentType, filePath, fileType string, documentDate *time.Time) (*domain.MedicalDocument, error) {
	if err := repo.EnsureUser(ctx, s.DB, userID); err != nil {
		return nil, err
	}
	doc, err := repo.CreateMedicalDocument(ctx, s.DB, userID, title, documentType, filePath, fileType, documentDate)
	if err != nil {
		return nil, err
	}
	if s.Queue != nil {
		if err := s.Queue.Publish(ctx, ingest.Job{DocumentID: doc.ID, UserID: userID}); err != nil {
			return doc, err
		}
	}
	return doc, nil
}

// ListPage returns a page of documents for userID, newest first, and the
// total document count.
func (s *DocumentService) ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.MedicalDocument, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountMedicalDocuments(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.MedicalDocument{}, 0, nil
	}

	items, err := repo.ListMedicalDocumentsPage(ctx, s.DB, userID, offset, pageSize)
	return items, total, err
}

// Get fetches a single document, translating a not-found row into
// ErrDocumentNotFound.
func (s *DocumentService) Get(ctx context.Context, userID, documentID string) (*domain.MedicalDocument, error) {
	doc, err := repo.GetMedicalDocument(ctx, s.DB, documentID, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	return doc, nil
}

// Delete removes a document. Its derived lab results are kept, with their
// document reference cleared.
func (s *DocumentService) Delete(ctx context.Context, userID, documentID string) error {
	if err := repo.DeleteMedicalDocument(ctx, s.DB, documentID, userID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrDocumentNotFound
		}
		return err
	}
	return nil
}
