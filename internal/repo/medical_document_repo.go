// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// MedicalDocument model, the record driving the ingestion pipeline.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-chat-backend/internal/domain"
)

// CreateMedicalDocument inserts a new document row in the "uploading"
// state. The ingestion pipeline advances its status as processing
// proceeds. documentDate is an optional client-supplied hint (e.g. the
// date printed on the report). SetDocumentParsedData replaces it only when
// given a non-nil date; no pipeline stage derives a date from the
// document's content, so the client's hint is what is kept.
func CreateMedicalDocument(ctx context.Context, db *gorm.DB, userID, title, documentType, filePath, fileType string, documentDate *time.Time) (*domain.MedicalDocument, error) {
	d := &domain.MedicalDocument{
		ID:           uuid.NewString(),
		UserID:       userID,
		Title:        title,
		DocumentType: documentType,
		FilePath:     filePath,
		FileType:     fileType,
		DocumentDate: documentDate,
		Status:       domain.DocStatusUploading,
		CreatedAt:    time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(d).Error; err != nil {
		return nil, err
	}
	return d, nil
}

// GetMedicalDocument fetches a document by ID, scoped to userID.
func GetMedicalDocument(ctx context.Context, db *gorm.DB, id, userID string) (*domain.MedicalDocument, error) {
	var d domain.MedicalDocument
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&d).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListMedicalDocumentsPage returns a paginated slice of a user's documents,
// most recently uploaded first.
func ListMedicalDocumentsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.MedicalDocument, error) {
	var out []domain.MedicalDocument
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountMedicalDocuments returns the total number of documents owned by
// userID.
func CountMedicalDocuments(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.MedicalDocument{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}

// UpdateDocumentStatus transitions a document to a new pipeline status.
func UpdateDocumentStatus(ctx context.Context, db *gorm.DB, id, status string) error {
	res := db.WithContext(ctx).
		Model(&domain.MedicalDocument{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetDocumentRawText records the OCR stage output and advances status.
func SetDocumentRawText(ctx context.Context, db *gorm.DB, id, status, rawText string) error {
	return db.WithContext(ctx).
		Model(&domain.MedicalDocument{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "raw_text": rawText}).Error
}

// SetDocumentParsedData records the extraction stage output (JSON text) and
// optional resolved document date, advancing status.
func SetDocumentParsedData(ctx context.Context, db *gorm.DB, id, status, parsedData string, documentDate *time.Time) error {
	updates := map[string]any{
		"status":      status,
		"parsed_data": parsedData,
	}
	if documentDate != nil {
		updates["document_date"] = documentDate
	}
	return db.WithContext(ctx).
		Model(&domain.MedicalDocument{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// MarkDocumentFailed sets status to failed and stashes the failure reason
// in parsed_data as {"error": "...", "stage": "..."}.
func MarkDocumentFailed(ctx context.Context, db *gorm.DB, id, diagnosticJSON string) error {
	return db.WithContext(ctx).
		Model(&domain.MedicalDocument{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":      domain.DocStatusFailed,
			"parsed_data": diagnosticJSON,
		}).Error
}

// DeleteMedicalDocument removes a document (and, via the LabResult FK's
// ON DELETE SET NULL, detaches any lab results extracted from it).
func DeleteMedicalDocument(ctx context.Context, db *gorm.DB, id, userID string) error {
	res := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&domain.MedicalDocument{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
