package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-chat-backend/internal/domain"
	"github.com/tbourn/go-chat-backend/internal/repo"
)

// OverallTimeout bounds an entire document's run through the pipeline,
// per SPEC_FULL.md §4.4.
const OverallTimeout = 600 * time.Second

// Pipeline drives one document through uploading → parsing → parsed →
// extracting → completed, or to failed at any stage.
type Pipeline struct {
	db        *gorm.DB
	ocr       *OCRClient
	extractor *Extractor
}

// NewPipeline builds a Pipeline over its collaborators.
func NewPipeline(db *gorm.DB, ocr *OCRClient, extractor *Extractor) *Pipeline {
	return &Pipeline{db: db, ocr: ocr, extractor: extractor}
}

// Handle runs the full pipeline for job, satisfying JobHandler.
func (p *Pipeline) Handle(ctx context.Context, job Job) error {
	ctx, cancel := context.WithTimeout(ctx, OverallTimeout)
	defer cancel()
	return p.run(ctx, job.DocumentID, job.UserID)
}

func (p *Pipeline) run(ctx context.Context, documentID, userID string) error {
	doc, err := repo.GetMedicalDocument(ctx, p.db, documentID, userID)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}

	// The queue is at-least-once: a redelivered job for a document that has
	// already moved past parsing (completed, failed, or mid-extraction from
	// another delivery) must not re-run and flip its status backward.
	if doc.Status != domain.DocStatusUploading && doc.Status != domain.DocStatusParsing {
		return nil
	}

	rawText, err := p.stageOCR(ctx, doc)
	if err != nil {
		return p.fail(ctx, documentID, "ocr", err)
	}

	extracted, err := p.stageExtract(ctx, rawText)
	if err != nil {
		return p.fail(ctx, documentID, "extraction", err)
	}

	validated := Validate(extracted, userID, documentID)
	if err := p.stagePersist(ctx, documentID, validated); err != nil {
		return p.fail(ctx, documentID, "persistence", err)
	}

	return nil
}

func (p *Pipeline) stageOCR(ctx context.Context, doc *domain.MedicalDocument) (string, error) {
	if err := repo.UpdateDocumentStatus(ctx, p.db, doc.ID, domain.DocStatusParsing); err != nil {
		return "", err
	}

	content, err := os.ReadFile(doc.FilePath)
	if err != nil {
		return "", fmt.Errorf("read uploaded file: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, OCRTimeout)
	defer cancel()

	text, err := p.ocr.ParseDocument(ctx, doc.Title, content)
	if err != nil {
		return "", err
	}

	if err := repo.SetDocumentRawText(ctx, p.db, doc.ID, domain.DocStatusParsed, text); err != nil {
		return "", err
	}
	return text, nil
}

func (p *Pipeline) stageExtract(ctx context.Context, rawText string) ([]ExtractedLabResult, error) {
	return p.extractor.Extract(ctx, rawText)
}

func (p *Pipeline) stagePersist(ctx context.Context, documentID string, validated ValidationResult) error {
	if err := repo.UpdateDocumentStatus(ctx, p.db, documentID, domain.DocStatusExtracting); err != nil {
		return err
	}

	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range validated.Valid {
			if _, err := repo.InsertLabResultSkipDuplicate(ctx, tx, &validated.Valid[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("persist lab results: %w", err)
	}

	summary, _ := json.Marshal(map[string]any{
		"extracted": len(validated.Valid) + validated.Dropped,
		"persisted": len(validated.Valid),
		"dropped":   validated.Dropped,
	})
	return repo.SetDocumentParsedData(ctx, p.db, documentID, domain.DocStatusCompleted, string(summary), nil)
}

func (p *Pipeline) fail(ctx context.Context, documentID, stage string, cause error) error {
	diagnostic, _ := json.Marshal(map[string]string{
		"error": cause.Error(),
		"stage": stage,
	})
	if err := repo.MarkDocumentFailed(ctx, p.db, documentID, string(diagnostic)); err != nil {
		return err
	}
	return cause
}
