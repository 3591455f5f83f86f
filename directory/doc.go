// Copyright (c) ProcurementFlow Authors.
// Licensed under the MIT License.

// Package directory implements the external collaborator boundaries the
// workflow engine depends on: subject record facts for intake nodes and
// department-to-manager resolution for department approvals. Both are
// thin gorm-backed lookups; absence is reported as typed errors so the
// engine can fail instances with a precise reason.
package directory
