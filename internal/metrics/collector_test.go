// 版权所有 2024 ProcurementFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

package metrics

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/wideshreck/procurementflow-backend/workflow"
)

var collectorNamespaceSeq uint64

func nextTestNamespace() string {
	seq := atomic.AddUint64(&collectorNamespaceSeq, 1)
	return fmt.Sprintf("test_%d", seq)
}

// =============================================================================
// 🧪 Collector 测试
// =============================================================================

func TestNewCollector(t *testing.T) {
	logger := zap.NewNop()
	collector := NewCollector(nextTestNamespace(), logger)

	assert.NotNil(t, collector)
	assert.NotNil(t, collector.httpRequestsTotal)
	assert.NotNil(t, collector.httpRequestDuration)
	assert.NotNil(t, collector.instancesStarted)
	assert.NotNil(t, collector.instancesFinished)
	assert.NotNil(t, collector.nodeExecutions)
	assert.NotNil(t, collector.decisionsSubmitted)
	assert.NotNil(t, collector.approvalsRequested)
}

func TestCollector_RecordHTTPRequest(t *testing.T) {
	logger := zap.NewNop()
	collector := NewCollector(nextTestNamespace(), logger)

	collector.RecordHTTPRequest("GET", "/test", 200, 100*time.Millisecond, 1024, 2048)

	count := testutil.CollectAndCount(collector.httpRequestsTotal)
	assert.Greater(t, count, 0)

	collector.RecordHTTPRequest("GET", "/test", 200, 50*time.Millisecond, 512, 1024)

	newCount := testutil.CollectAndCount(collector.httpRequestsTotal)
	assert.GreaterOrEqual(t, newCount, count)
}

func TestCollector_WorkflowMetrics(t *testing.T) {
	logger := zap.NewNop()
	collector := NewCollector(nextTestNamespace(), logger)

	collector.InstanceStarted("def-1")
	collector.InstanceFinished(workflow.InstanceCompleted)
	collector.NodeExecuted(workflow.NodeTypePersonApproval, workflow.ResultWaiting)
	collector.DecisionSubmitted(workflow.DecisionApprove)
	collector.ApprovalRequested()

	assert.Greater(t, testutil.CollectAndCount(collector.instancesStarted), 0)
	assert.Greater(t, testutil.CollectAndCount(collector.instancesFinished), 0)
	assert.Greater(t, testutil.CollectAndCount(collector.nodeExecutions), 0)
	assert.Greater(t, testutil.CollectAndCount(collector.decisionsSubmitted), 0)
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.approvalsRequested))
}

func TestCollector_WorkflowMetrics_LabelValues(t *testing.T) {
	logger := zap.NewNop()
	collector := NewCollector(nextTestNamespace(), logger)

	collector.DecisionSubmitted(workflow.DecisionApprove)
	collector.DecisionSubmitted(workflow.DecisionApprove)
	collector.DecisionSubmitted(workflow.DecisionReject)

	approve := collector.decisionsSubmitted.WithLabelValues(string(workflow.DecisionApprove))
	reject := collector.decisionsSubmitted.WithLabelValues(string(workflow.DecisionReject))
	assert.Equal(t, 2.0, testutil.ToFloat64(approve))
	assert.Equal(t, 1.0, testutil.ToFloat64(reject))
}

func TestCollector_RecordCacheOperation(t *testing.T) {
	logger := zap.NewNop()
	collector := NewCollector(nextTestNamespace(), logger)

	collector.RecordCacheHit("redis")
	collector.RecordCacheMiss("redis")

	hitCount := testutil.CollectAndCount(collector.cacheHits)
	assert.Greater(t, hitCount, 0)

	missCount := testutil.CollectAndCount(collector.cacheMisses)
	assert.Greater(t, missCount, 0)
}

func TestCollector_RecordDatabaseQuery(t *testing.T) {
	logger := zap.NewNop()
	collector := NewCollector(nextTestNamespace(), logger)

	collector.RecordDBQuery("postgres", "SELECT", 20*time.Millisecond)

	count := testutil.CollectAndCount(collector.dbQueryDuration)
	assert.Greater(t, count, 0)
}

func TestCollector_UpdateConnectionPool(t *testing.T) {
	logger := zap.NewNop()
	collector := NewCollector(nextTestNamespace(), logger)

	collector.RecordDBConnections("postgres", 10, 5)

	openCount := testutil.CollectAndCount(collector.dbConnectionsOpen)
	assert.Greater(t, openCount, 0)

	idleCount := testutil.CollectAndCount(collector.dbConnectionsIdle)
	assert.Greater(t, idleCount, 0)
}

func TestCollector_ConcurrentRecording(t *testing.T) {
	logger := zap.NewNop()
	collector := NewCollector(nextTestNamespace(), logger)

	// 并发记录多个指标
	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			collector.RecordHTTPRequest("GET", "/test", 200, 100*time.Millisecond, 1024, 2048)
			collector.InstanceStarted("def-1")
			collector.NodeExecuted(workflow.NodeTypeConditionIf, workflow.ResultCompleted)
			collector.RecordCacheHit("redis")
			done <- true
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	assert.Greater(t, testutil.CollectAndCount(collector.httpRequestsTotal), 0)
	assert.Equal(t, 10.0, testutil.ToFloat64(collector.instancesStarted.WithLabelValues("def-1")))
	assert.Greater(t, testutil.CollectAndCount(collector.cacheHits), 0)
}
