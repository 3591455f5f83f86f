package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wideshreck/procurementflow-backend/internal/store"
	"github.com/wideshreck/procurementflow-backend/types"
	"github.com/wideshreck/procurementflow-backend/workflow"
)

// =============================================================================
// 🧪 测试基础设施
// =============================================================================

// fakeSubjects 以内存 map 提供采购申请事实
type fakeSubjects struct {
	facts map[string]workflow.Facts
}

func (f *fakeSubjects) Facts(_ context.Context, id string) (workflow.Facts, error) {
	facts, ok := f.facts[id]
	if !ok {
		return workflow.Facts{}, types.NewError(types.ErrSubjectRecordNotFound, "subject record not found: "+id)
	}
	return facts, nil
}

// fakeDepartments 以内存 map 解析部门经理
type fakeDepartments struct {
	managers map[string]string
}

func (f *fakeDepartments) ManagerID(_ context.Context, id string) (string, error) {
	m, ok := f.managers[id]
	if !ok {
		return "", types.NewError(types.ErrDepartmentNotFound, "department not found: "+id)
	}
	return m, nil
}

type testEnv struct {
	repo     *store.Repository
	engine   *workflow.Engine
	workflow *WorkflowHandler
	instance *InstanceHandler
	mux      *http.ServeMux
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, store.AutoMigrate(db))

	repo := store.NewRepository(db)
	subjects := &fakeSubjects{facts: map[string]workflow.Facts{
		"pr-1": {TotalPrice: 15000, UnitPrice: 1500, Quantity: 10, Category: "IT_EQUIPMENT", Urgency: "HIGH"},
		"pr-2": {TotalPrice: 5000, UnitPrice: 500, Quantity: 10, Category: "OFFICE_SUPPLIES", Urgency: "LOW"},
	}}
	departments := &fakeDepartments{managers: map[string]string{"dept-fin": "bob"}}

	engine := workflow.NewEngine(repo, subjects, departments)

	env := &testEnv{
		repo:     repo,
		engine:   engine,
		workflow: NewWorkflowHandler(repo, engine, zap.NewNop()),
		instance: NewInstanceHandler(engine, zap.NewNop()),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/workflows", env.workflow.HandleCreateWorkflow)
	mux.HandleFunc("GET /api/v1/workflows", env.workflow.HandleListWorkflows)
	mux.HandleFunc("GET /api/v1/workflows/statistics", env.workflow.HandleStatistics)
	mux.HandleFunc("GET /api/v1/workflows/{id}", env.workflow.HandleGetWorkflow)
	mux.HandleFunc("PATCH /api/v1/workflows/{id}", env.workflow.HandleUpdateWorkflow)
	mux.HandleFunc("DELETE /api/v1/workflows/{id}", env.workflow.HandleDeleteWorkflow)
	mux.HandleFunc("POST /api/v1/workflows/{id}/clone", env.workflow.HandleCloneWorkflow)
	mux.HandleFunc("GET /api/v1/workflows/{id}/instances", env.workflow.HandleListInstances)
	mux.HandleFunc("POST /api/v1/workflows/{id}/start", env.workflow.HandleStartInstance)
	mux.HandleFunc("GET /api/v1/instances/{instanceId}", env.instance.HandleGetInstance)
	mux.HandleFunc("POST /api/v1/instances/{instanceId}/approve", env.instance.HandleApprove)
	mux.HandleFunc("GET /api/v1/approvals/pending", env.instance.HandlePendingApprovals)
	env.mux = mux

	return env
}

// do 以可选调用者身份发送请求
func (env *testEnv) do(t *testing.T, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		req = req.WithContext(types.WithUserID(req.Context(), userID))
	}
	rec := httptest.NewRecorder()
	env.mux.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

// approvalGraph 是标准测试图：intake → IF(totalPrice > 10000)
// yes 走人工审批再放行，no 直接放行。
func approvalGraph() map[string]any {
	nodes := []workflow.Node{
		{ID: "intake", Type: workflow.NodeTypeRequestIntake},
		{ID: "check", Type: workflow.NodeTypeConditionIf, Config: workflow.NodeConfig{
			If: &workflow.IfConfig{Field: workflow.PortTotalPrice, Operator: workflow.OperatorGT, Threshold: 10000},
		}},
		{ID: "mgr", Type: workflow.NodeTypePersonApproval, Config: workflow.NodeConfig{
			PersonApproval: &workflow.PersonApprovalConfig{ApproverID: "bob"},
		}},
		{ID: "accept", Type: workflow.NodeTypeApprove},
	}
	edges := []workflow.Edge{
		{ID: "e1", Source: "intake", SourceHandle: workflow.PortTotalPrice, Target: "check", TargetHandle: workflow.PortDefault, DataType: workflow.DataTypeNumber},
		{ID: "e2", Source: "check", SourceHandle: workflow.PortYes, Target: "mgr", TargetHandle: workflow.PortDefault, DataType: workflow.DataTypeBoolean},
		{ID: "e3", Source: "check", SourceHandle: workflow.PortNo, Target: "accept", TargetHandle: workflow.PortDefault, DataType: workflow.DataTypeBoolean},
		{ID: "e4", Source: "mgr", SourceHandle: workflow.PortApproved, Target: "accept", TargetHandle: workflow.PortDefault, DataType: workflow.DataTypeBoolean},
	}
	return map[string]any{
		"name":   "purchase approval",
		"active": true,
		"nodes":  nodes,
		"edges":  edges,
	}
}

// createWorkflow 创建标准测试图并返回其 ID
func createWorkflow(t *testing.T, env *testEnv) string {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/api/v1/workflows", "", approvalGraph())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeResponse(t, rec)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	wf, ok := data["workflow"].(map[string]any)
	require.True(t, ok)
	id, _ := wf["id"].(string)
	require.NotEmpty(t, id)
	return id
}
