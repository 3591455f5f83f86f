// Copyright (c) ProcurementFlow Authors.
// Licensed under the MIT License.

// Package workflow implements the procurement approval orchestration
// engine: a directed-graph execution model over typed nodes and edges.
//
// A Definition is the static graph an organization authors: one intake
// entry node, condition and parallel control nodes, human approval nodes
// and terminal accept/reject nodes. Validate checks a candidate graph once
// at save time.
//
// An Instance is one live execution of a definition against a subject
// record. The Engine advances it synchronously inside StartInstance and
// SubmitDecision, suspending branches at approval nodes as persisted
// PENDING state so that decisions arriving days later resume cleanly.
// Forked branches reconcile at PARALLEL_JOIN nodes under an ALL/ANY
// strategy, with sibling completion re-derived from persisted execution
// records rather than in-memory counters.
package workflow
