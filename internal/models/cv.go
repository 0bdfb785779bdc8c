package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "pending"
	StatusProcessing ProcessingStatus = "processing"
	StatusCompleted  ProcessingStatus = "completed"
	StatusFailed     ProcessingStatus = "failed"
)

func (s ProcessingStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CV is the job record of one uploaded document. RawText is written once at
// upload; the three structured artifacts are only ever written together.
type CV struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID          string    `gorm:"type:text;not null;index" json:"ownerId"`
	OriginalFilename string    `gorm:"type:text" json:"originalFilename"`
	FileType         string    `gorm:"type:text" json:"fileType"`
	FileSize         int64     `json:"fileSize"`
	StorageKey       string    `gorm:"type:text" json:"-"`
	RawText          string    `gorm:"type:text" json:"rawText"`

	HeadshotKey  *string `gorm:"type:text" json:"-"`
	HeadshotType *string `gorm:"type:text" json:"headshotType,omitempty"`

	Status                 ProcessingStatus `gorm:"type:text;not null;default:'pending';index" json:"status"`
	ModelUsed              *string          `gorm:"type:text" json:"modelUsed,omitempty"`
	StructuredCV           datatypes.JSON   `json:"structuredCv,omitempty"`
	StructuredRegistration datatypes.JSON   `json:"structuredRegistration,omitempty"`
	PreviewMarkup          *string          `gorm:"type:text" json:"previewMarkup,omitempty"`
	ProcessingError        *string          `gorm:"type:text" json:"processingError,omitempty"`
	ProcessingAttempt      *uuid.UUID       `gorm:"type:uuid" json:"-"`
	ProcessingStartedAt    *time.Time       `json:"processingStartedAt,omitempty"`
	ProcessedAt            *time.Time       `json:"processedAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (CV) TableName() string {
	return "cvs"
}

func (c *CV) HasHeadshot() bool {
	return c.HeadshotKey != nil && *c.HeadshotKey != ""
}
