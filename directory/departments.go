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

// DepartmentRow is the persisted shape of an organizational department.
type DepartmentRow struct {
	ID        string    `gorm:"primaryKey;size:64"`
	Name      string    `gorm:"size:255;not null"`
	ManagerID string    `gorm:"size:64"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (DepartmentRow) TableName() string { return "departments" }

// DepartmentDirectory resolves departments to their managers for
// department approval nodes.
type DepartmentDirectory struct {
	db     *gorm.DB
	logger *zap.Logger
}

var _ workflow.Departments = (*DepartmentDirectory)(nil)

// NewDepartmentDirectory creates a directory over an existing gorm handle.
func NewDepartmentDirectory(db *gorm.DB, logger *zap.Logger) *DepartmentDirectory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DepartmentDirectory{
		db:     db,
		logger: logger.With(zap.String("component", "department_directory")),
	}
}

// ManagerID resolves the manager of a department. An unknown department
// and a department without a manager are distinct typed errors; both make
// the calling approval node fail its instance.
func (d *DepartmentDirectory) ManagerID(ctx context.Context, departmentID string) (string, error) {
	var row DepartmentRow
	err := d.db.WithContext(ctx).First(&row, "id = ?", departmentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", types.NewError(types.ErrDepartmentNotFound,
			"department not found: "+departmentID)
	}
	if err != nil {
		d.logger.Error("department lookup failed",
			zap.String("department_id", departmentID), zap.Error(err))
		return "", err
	}

	if row.ManagerID == "" {
		return "", types.NewError(types.ErrApproverUnresolved,
			"department has no manager: "+departmentID)
	}
	return row.ManagerID, nil
}

// CreateDepartment persists a department record.
func (d *DepartmentDirectory) CreateDepartment(ctx context.Context, row *DepartmentRow) error {
	now := time.Now()
	row.CreatedAt = now
	row.UpdatedAt = now
	return d.db.WithContext(ctx).Create(row).Error
}

// AutoMigrate creates the directory tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&SubjectRecordRow{}, &DepartmentRow{})
}
