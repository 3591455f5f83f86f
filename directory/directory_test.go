// Copyright (c) ProcurementFlow Authors.
// Licensed under the MIT License.

package directory

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wideshreck/procurementflow-backend/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	return db
}

func TestSubjectDirectory_Facts(t *testing.T) {
	db := newTestDB(t)
	dir := NewSubjectDirectory(db, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, dir.CreateSubjectRecord(ctx, &SubjectRecordRow{
		ID:          "pr-1",
		Title:       "laptops for onboarding",
		RequesterID: "alice",
		TotalPrice:  15000,
		UnitPrice:   1500,
		Quantity:    10,
		Category:    "IT_EQUIPMENT",
		Urgency:     "HIGH",
	}))

	facts, err := dir.Facts(ctx, "pr-1")
	require.NoError(t, err)
	assert.Equal(t, 15000.0, facts.TotalPrice)
	assert.Equal(t, 1500.0, facts.UnitPrice)
	assert.Equal(t, 10.0, facts.Quantity)
	assert.Equal(t, "IT_EQUIPMENT", facts.Category)
	assert.Equal(t, "HIGH", facts.Urgency)
}

func TestSubjectDirectory_Facts_NotFound(t *testing.T) {
	db := newTestDB(t)
	dir := NewSubjectDirectory(db, zap.NewNop())

	_, err := dir.Facts(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrSubjectRecordNotFound))
}

func TestDepartmentDirectory_ManagerID(t *testing.T) {
	db := newTestDB(t)
	dir := NewDepartmentDirectory(db, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, dir.CreateDepartment(ctx, &DepartmentRow{
		ID:        "dept-fin",
		Name:      "Finance",
		ManagerID: "bob",
	}))

	managerID, err := dir.ManagerID(ctx, "dept-fin")
	require.NoError(t, err)
	assert.Equal(t, "bob", managerID)
}

func TestDepartmentDirectory_ManagerID_UnknownDepartment(t *testing.T) {
	db := newTestDB(t)
	dir := NewDepartmentDirectory(db, zap.NewNop())

	_, err := dir.ManagerID(context.Background(), "dept-ghost")
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrDepartmentNotFound))
}

func TestDepartmentDirectory_ManagerID_NoManager(t *testing.T) {
	db := newTestDB(t)
	dir := NewDepartmentDirectory(db, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, dir.CreateDepartment(ctx, &DepartmentRow{
		ID:   "dept-new",
		Name: "New Ventures",
	}))

	_, err := dir.ManagerID(ctx, "dept-new")
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrApproverUnresolved))
}
