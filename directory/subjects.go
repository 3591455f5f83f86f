// Copyright (c) ProcurementFlow Authors.
// Licensed under the MIT License.

package directory

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wideshreck/procurementflow-backend/types"
	"github.com/wideshreck/procurementflow-backend/workflow"
)

// SubjectRecordRow is the persisted shape of a procurement request the
// intake node reads its facts from.
type SubjectRecordRow struct {
	ID          string    `gorm:"primaryKey;size:64"`
	Title       string    `gorm:"size:255"`
	RequesterID string    `gorm:"size:64;index"`
	TotalPrice  float64   `gorm:"not null"`
	UnitPrice   float64   `gorm:"not null"`
	Quantity    float64   `gorm:"not null"`
	Category    string    `gorm:"size:128"`
	Urgency     string    `gorm:"size:32"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (SubjectRecordRow) TableName() string { return "subject_records" }

// SubjectDirectory answers fact lookups for procurement requests.
type SubjectDirectory struct {
	db     *gorm.DB
	logger *zap.Logger
}

var _ workflow.SubjectRecords = (*SubjectDirectory)(nil)

// NewSubjectDirectory creates a directory over an existing gorm handle.
func NewSubjectDirectory(db *gorm.DB, logger *zap.Logger) *SubjectDirectory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectDirectory{
		db:     db,
		logger: logger.With(zap.String("component", "subject_directory")),
	}
}

// Facts loads the numeric and categorical facts of a subject record. A
// missing record is a typed not-found error, not an infrastructure failure.
func (d *SubjectDirectory) Facts(ctx context.Context, subjectRecordID string) (workflow.Facts, error) {
	var row SubjectRecordRow
	err := d.db.WithContext(ctx).First(&row, "id = ?", subjectRecordID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return workflow.Facts{}, types.NewError(types.ErrSubjectRecordNotFound,
			"subject record not found: "+subjectRecordID)
	}
	if err != nil {
		d.logger.Error("subject record lookup failed",
			zap.String("subject_record_id", subjectRecordID), zap.Error(err))
		return workflow.Facts{}, err
	}

	return workflow.Facts{
		TotalPrice: row.TotalPrice,
		UnitPrice:  row.UnitPrice,
		Quantity:   row.Quantity,
		Category:   row.Category,
		Urgency:    row.Urgency,
	}, nil
}

// CreateSubjectRecord persists a procurement request record.
func (d *SubjectDirectory) CreateSubjectRecord(ctx context.Context, row *SubjectRecordRow) error {
	now := time.Now()
	row.CreatedAt = now
	row.UpdatedAt = now
	return d.db.WithContext(ctx).Create(row).Error
}
