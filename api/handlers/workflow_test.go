package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wideshreck/procurementflow-backend/types"
	"github.com/wideshreck/procurementflow-backend/workflow"
)

// =============================================================================
// 🧪 WorkflowHandler 测试
// =============================================================================

func TestHandleCreateWorkflow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/workflows", "", approvalGraph())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)
}

func TestHandleCreateWorkflow_ValidationFailure(t *testing.T) {
	env := newTestEnv(t)

	// 没有终端节点，且 IF 缺少配置
	body := map[string]any{
		"name": "broken",
		"nodes": []workflow.Node{
			{ID: "intake", Type: workflow.NodeTypeRequestIntake},
			{ID: "check", Type: workflow.NodeTypeConditionIf},
		},
		"edges": []workflow.Edge{
			{ID: "e1", Source: "intake", SourceHandle: workflow.PortTotalPrice, Target: "check", TargetHandle: workflow.PortDefault, DataType: workflow.DataTypeNumber},
		},
	}

	rec := env.do(t, http.MethodPost, "/api/v1/workflows", "", body)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())

	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, string(types.ErrDefinitionInvalid), resp.Error.Code)

	// 响应体携带全部校验错误
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	errs, ok := data["errors"].([]any)
	require.True(t, ok)
	assert.NotEmpty(t, errs)
}

func TestHandleCreateWorkflow_MissingName(t *testing.T) {
	env := newTestEnv(t)

	body := approvalGraph()
	body["name"] = ""
	rec := env.do(t, http.MethodPost, "/api/v1/workflows", "", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleListWorkflows(t *testing.T) {
	env := newTestEnv(t)
	createWorkflow(t, env)

	rec := env.do(t, http.MethodGet, "/api/v1/workflows", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	list, ok := resp.Data.([]any)
	require.True(t, ok)
	assert.Len(t, list, 1)
}

func TestHandleGetWorkflow(t *testing.T) {
	env := newTestEnv(t)
	id := createWorkflow(t, env)

	rec := env.do(t, http.MethodGet, "/api/v1/workflows/"+id, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	def, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, id, def["id"])
	assert.Len(t, def["nodes"], 4)
}

func TestHandleGetWorkflow_NotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/workflows/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleUpdateWorkflow(t *testing.T) {
	env := newTestEnv(t)
	id := createWorkflow(t, env)

	rec := env.do(t, http.MethodPatch, "/api/v1/workflows/"+id, "", map[string]any{
		"name": "renamed approval",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/v1/workflows/"+id, "", nil)
	resp := decodeResponse(t, rec)
	def := resp.Data.(map[string]any)
	assert.Equal(t, "renamed approval", def["name"])
	// 更新递增版本
	assert.Equal(t, float64(2), def["version"])
}

func TestHandleUpdateWorkflow_GraphChangeWhileRunning(t *testing.T) {
	env := newTestEnv(t)
	id := createWorkflow(t, env)

	// 启动一个会在人工审批处挂起的实例
	rec := env.do(t, http.MethodPost, "/api/v1/workflows/"+id+"/start", "", map[string]any{
		"subjectRecordId": "pr-1",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// 图结构变更被拒绝
	body := approvalGraph()
	rec = env.do(t, http.MethodPatch, "/api/v1/workflows/"+id, "", map[string]any{
		"nodes": body["nodes"],
		"edges": body["edges"],
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// 纯元数据变更仍然允许
	rec = env.do(t, http.MethodPatch, "/api/v1/workflows/"+id, "", map[string]any{
		"name": "still renameable",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleDeleteWorkflow(t *testing.T) {
	env := newTestEnv(t)
	id := createWorkflow(t, env)

	rec := env.do(t, http.MethodDelete, "/api/v1/workflows/"+id, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/workflows/"+id, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleDeleteWorkflow_WhileRunning(t *testing.T) {
	env := newTestEnv(t)
	id := createWorkflow(t, env)

	rec := env.do(t, http.MethodPost, "/api/v1/workflows/"+id+"/start", "", map[string]any{
		"subjectRecordId": "pr-1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/v1/workflows/"+id, "", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandleCloneWorkflow(t *testing.T) {
	env := newTestEnv(t)
	id := createWorkflow(t, env)

	rec := env.do(t, http.MethodPost, "/api/v1/workflows/"+id+"/clone", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeResponse(t, rec)
	clone := resp.Data.(map[string]any)
	assert.NotEqual(t, id, clone["id"])
	assert.Equal(t, "purchase approval (copy)", clone["name"])
	assert.Equal(t, false, clone["active"])
	assert.Len(t, clone["nodes"], 4)
}

func TestHandleStartInstance(t *testing.T) {
	env := newTestEnv(t)
	id := createWorkflow(t, env)

	rec := env.do(t, http.MethodPost, "/api/v1/workflows/"+id+"/start", "", map[string]any{
		"subjectRecordId": "pr-1",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]any)
	assert.NotEmpty(t, data["instanceId"])
}

func TestHandleStartInstance_DuplicateSubject(t *testing.T) {
	env := newTestEnv(t)
	id := createWorkflow(t, env)

	rec := env.do(t, http.MethodPost, "/api/v1/workflows/"+id+"/start", "", map[string]any{
		"subjectRecordId": "pr-1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/workflows/"+id+"/start", "", map[string]any{
		"subjectRecordId": "pr-1",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandleStartInstance_UnknownDefinition(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/workflows/missing/start", "", map[string]any{
		"subjectRecordId": "pr-1",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleStatistics(t *testing.T) {
	env := newTestEnv(t)
	id := createWorkflow(t, env)

	// pr-1 挂起（IN_PROGRESS），pr-2 低价直接完成
	rec := env.do(t, http.MethodPost, "/api/v1/workflows/"+id+"/start", "", map[string]any{"subjectRecordId": "pr-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodPost, "/api/v1/workflows/"+id+"/start", "", map[string]any{"subjectRecordId": "pr-2"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/workflows/statistics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	list := resp.Data.([]any)
	require.Len(t, list, 1)
	stats := list[0].(map[string]any)
	counts := stats["counts"].(map[string]any)
	assert.Equal(t, float64(1), counts[string(workflow.InstanceInProgress)])
	assert.Equal(t, float64(1), counts[string(workflow.InstanceCompleted)])
}

func TestHandleListInstances(t *testing.T) {
	env := newTestEnv(t)
	id := createWorkflow(t, env)

	rec := env.do(t, http.MethodPost, "/api/v1/workflows/"+id+"/start", "", map[string]any{"subjectRecordId": "pr-1"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/workflows/"+id+"/instances", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	list := resp.Data.([]any)
	assert.Len(t, list, 1)
}
