// Package api provides the request and response types for the
// ProcurementFlow HTTP API.
//
// # API Overview
//
// ProcurementFlow provides a RESTful API for:
//   - Workflow definition management (create, update, clone, delete)
//   - Graph validation with accumulated errors and advisory warnings
//   - Starting approval instances against procurement requests
//   - Submitting approval decisions and listing pending approvals
//   - Health monitoring and metrics
//
// # Authentication
//
// When authentication is enabled, API endpoints require a Bearer token:
//
//	Authorization: Bearer <jwt>
//
// The token's subject identifies the caller as an approver.
package api
