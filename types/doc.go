// Copyright (c) ProcurementFlow Authors.
// Licensed under the MIT License.

// Package types defines the shared primitives used across the
// procurement workflow platform: the unified error model and the
// context helpers that carry request identity between layers.
package types
