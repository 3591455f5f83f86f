// Package procurementflow provides a top-level convenience entry point for
// embedding the approval workflow engine with minimal boilerplate.
//
// Usage:
//
//	import "github.com/wideshreck/procurementflow-backend"
//
//	engine := procurementflow.NewEngine(store, subjects, departments)
//	engine := procurementflow.NewEngine(store, subjects, departments,
//		procurementflow.WithMaxSteps(500))
//
// This is a thin wrapper around [workflow.NewEngine]; both produce identical
// results. Use this package when you prefer the shorter import path.
package procurementflow

import (
	"github.com/wideshreck/procurementflow-backend/workflow"
)

// Engine executes workflow definitions against procurement requests.
type Engine = workflow.Engine

// Definition is a versioned workflow graph.
type Definition = workflow.Definition

// Instance is a single run of a definition for one procurement request.
type Instance = workflow.Instance

// Option configures the engine created by [NewEngine].
type Option = workflow.Option

// NewEngine creates a [workflow.Engine] over the given store and directories.
func NewEngine(store workflow.Store, subjects workflow.SubjectRecords, departments workflow.Departments, opts ...Option) *Engine {
	return workflow.NewEngine(store, subjects, departments, opts...)
}

// Re-export engine options so callers never need to import workflow/.

// WithLogger sets the structured logger used by the engine.
var WithLogger = workflow.WithLogger

// WithMetrics sets the metrics recorder notified on engine events.
var WithMetrics = workflow.WithMetrics

// WithMaxSteps caps the number of node executions per engine run.
var WithMaxSteps = workflow.WithMaxSteps

// WithLockStripes sets the number of instance lock stripes.
var WithLockStripes = workflow.WithLockStripes
