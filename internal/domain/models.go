// Package domain defines the persistence models for the health assistant:
// chat sessions/messages, uploaded medical documents, lab results, symptom
// entries, and the read-only wearable series. These types are mapped with
// GORM and form the core data layer of the application.
package domain

import "time"

// User is the account owning all other per-user rows. Authentication and
// profile management live outside this module's scope; rows are created
// lazily on first reference (see repo.EnsureUser).
type User struct {
	ID          string    `json:"id"           gorm:"type:char(36);primaryKey"`
	DisplayName string    `json:"display_name" gorm:"type:varchar(255);not null;default:''"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "user" }

// ChatSession is a conversation container owned by a user. A session owns
// an ordered sequence of messages; deleting a session cascades to them.
//
// Fields:
//   - Title: optional; auto-filled from the first user message when null.
//   - LastActivityAt: advanced whenever a message is appended.
type ChatSession struct {
	ID             string    `json:"id"               gorm:"type:char(36);primaryKey"`
	UserID         string    `json:"user_id"          gorm:"type:char(36);not null;index:idx_user_sessions"`
	Title          *string   `json:"title"            gorm:"type:varchar(255)"`
	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// TableName returns the database table name for ChatSession.
func (ChatSession) TableName() string { return "chat_session" }

// Chat message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleTool      = "tool"
)

// ChatMessage is one turn within a session. Metadata is a JSON-encoded
// string; for assistant turns it records the tool calls made during that
// turn (name, arguments, and JSON result) so the orchestrator can
// reconstruct the tool-call/tool-result context on replay without
// persisting tool-role rows.
type ChatMessage struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	SessionID string    `json:"session_id" gorm:"type:char(36);not null;index:idx_session_msgs,priority:1"`
	Role      string    `json:"role"       gorm:"type:varchar(16);not null;check:role IN ('user','assistant','system','tool')"`
	Content   string    `json:"content"    gorm:"type:text;not null"`
	Metadata  *string   `json:"metadata,omitempty" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_session_msgs,priority:2"`

	Session ChatSession `json:"-" gorm:"foreignKey:SessionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ChatMessage.
func (ChatMessage) TableName() string { return "chat_message" }

// ToolCallRecord is one entry of a ChatMessage.Metadata tool-call list.
type ToolCallRecord struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
	Result    string `json:"result"`
}

// MessageMetadata is the decoded shape of ChatMessage.Metadata.
type MessageMetadata struct {
	ToolCalls []ToolCallRecord `json:"tool_calls,omitempty"`
}

// Document ingestion states.
const (
	DocStatusUploading  = "uploading"
	DocStatusParsing    = "parsing"
	DocStatusParsed     = "parsed"
	DocStatusExtracting = "extracting"
	DocStatusCompleted  = "completed"
	DocStatusFailed     = "failed"
)

// Document types.
const (
	DocTypeLabReport    = "lab_report"
	DocTypePrescription = "prescription"
	DocTypeImaging      = "imaging"
	DocTypeOther        = "other"
)

// MedicalDocument is one uploaded file driving the ingestion pipeline.
// RawText and ParsedData are populated as the pipeline advances;
// ParsedData carries {error, stage} diagnostics on failure.
type MedicalDocument struct {
	ID           string     `json:"id"            gorm:"type:char(36);primaryKey"`
	UserID       string     `json:"user_id"       gorm:"type:char(36);not null;index:idx_document_user_status,priority:1"`
	Title        string     `json:"title"         gorm:"type:varchar(255);not null"`
	DocumentType string     `json:"document_type" gorm:"type:varchar(50);not null"`
	FilePath     string     `json:"file_path"     gorm:"type:text;not null"`
	FileType     string     `json:"file_type"     gorm:"type:varchar(100);not null"`
	RawText      *string    `json:"raw_text,omitempty"    gorm:"type:text"`
	ParsedData   *string    `json:"parsed_data,omitempty" gorm:"type:text"`
	DocumentDate *time.Time `json:"document_date,omitempty"`
	Status       string     `json:"status"        gorm:"type:varchar(50);not null;index:idx_document_user_status,priority:2"`
	CreatedAt    time.Time  `json:"created_at"`
}

// TableName returns the database table name for MedicalDocument.
func (MedicalDocument) TableName() string { return "medical_document" }

// Lab result status values.
const (
	LabStatusNormal   = "normal"
	LabStatusHigh     = "high"
	LabStatusLow      = "low"
	LabStatusCritical = "critical"
)

// LabResult is one measurement, extracted from a document or seeded
// directly. Dedup key: (user_id, test_code, recorded_at) when test_code is
// present, else (user_id, test_name, recorded_at).
type LabResult struct {
	ID           string    `json:"id"             gorm:"type:char(36);primaryKey"`
	DocumentID   *string   `json:"document_id,omitempty" gorm:"type:char(36);index"`
	UserID       string    `json:"user_id"        gorm:"type:char(36);not null;index:idx_lab_user_test_date,priority:1"`
	TestName     string    `json:"test_name"      gorm:"type:varchar(255);not null;index:idx_lab_user_test_date,priority:2"`
	TestCode     *string   `json:"test_code,omitempty" gorm:"type:varchar(50)"`
	Value        float64   `json:"value"          gorm:"type:decimal(10,3);not null"`
	Unit         string    `json:"unit"           gorm:"type:varchar(50);not null"`
	ReferenceMin *float64  `json:"reference_min,omitempty" gorm:"type:decimal(10,3)"`
	ReferenceMax *float64  `json:"reference_max,omitempty" gorm:"type:decimal(10,3)"`
	Status       *string   `json:"status,omitempty" gorm:"type:varchar(50)"`
	RecordedAt   time.Time `json:"recorded_at"    gorm:"index:idx_lab_user_test_date,priority:3"`

	Document *MedicalDocument `json:"-" gorm:"foreignKey:DocumentID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}

// TableName returns the database table name for LabResult.
func (LabResult) TableName() string { return "lab_result" }

// SymptomEntry is one user-logged symptom event. Triggers is stored as a
// JSON-encoded string array.
type SymptomEntry struct {
	ID              string    `json:"id"               gorm:"type:char(36);primaryKey"`
	UserID          string    `json:"user_id"          gorm:"type:char(36);not null;index:idx_symptom_user_type_date,priority:1"`
	SymptomType     string    `json:"symptom_type"     gorm:"type:varchar(100);not null;index:idx_symptom_user_type_date,priority:2"`
	Severity        int       `json:"severity"         gorm:"not null;check:severity BETWEEN 0 AND 10"`
	Notes           *string   `json:"notes,omitempty"  gorm:"type:text"`
	RecordedAt      time.Time `json:"recorded_at"      gorm:"index:idx_symptom_user_type_date,priority:3"`
	DurationMinutes *int      `json:"duration_minutes,omitempty"`
	Triggers        *string   `json:"triggers,omitempty" gorm:"type:text"`
}

// TableName returns the database table name for SymptomEntry.
func (SymptomEntry) TableName() string { return "symptom_entry" }

// WearableSeriesType is a lookup row mapping a wearable metric code to its
// canonical unit and display name. Seeded at startup; read-only at runtime.
type WearableSeriesType struct {
	Code        string `json:"code"         gorm:"type:varchar(50);primaryKey"`
	Unit        string `json:"unit"         gorm:"type:varchar(50);not null"`
	DisplayName string `json:"display_name" gorm:"type:varchar(255);not null"`
}

// TableName returns the database table name for WearableSeriesType.
func (WearableSeriesType) TableName() string { return "wearable_series_type" }

// WearableSample is one (series_type, recorded_at, value) reading. Wearable
// ingestion itself is out of scope; rows are seeded fixtures standing in
// for an external wearable-provider sync, giving the tool catalog a real
// series to read without building sync adapters.
type WearableSample struct {
	ID         string    `json:"id"          gorm:"type:char(36);primaryKey"`
	UserID     string    `json:"user_id"     gorm:"type:char(36);not null;index:idx_wearable_user_series_date,priority:1"`
	SeriesCode string    `json:"series_code" gorm:"type:varchar(50);not null;index:idx_wearable_user_series_date,priority:2"`
	RecordedAt time.Time `json:"recorded_at" gorm:"index:idx_wearable_user_series_date,priority:3"`
	Value      float64   `json:"value"       gorm:"type:decimal(10,3);not null"`
}

// TableName returns the database table name for WearableSample.
func (WearableSample) TableName() string { return "wearable_sample" }

// ActiveStream is a conditional-insert row enforcing a single in-flight
// message stream per session: a row keyed by SessionID exists only while a
// stream is in flight, and is removed when the stream ends (success,
// error, or cancellation). No in-process mutex is used — a unique primary
// key on SessionID is the enforcement mechanism.
type ActiveStream struct {
	SessionID string    `json:"session_id" gorm:"type:char(36);primaryKey"`
	StartedAt time.Time `json:"started_at"`
}

// TableName returns the database table name for ActiveStream.
func (ActiveStream) TableName() string { return "active_stream" }
