// Package ir provides the core graph data model: nodes, links, flag kinds,
// mtimes, and a deterministic value encoding (RFC 8785 canonical JSON).
//
// This package contains type definitions and pure encoding helpers only.
// Every other internal package imports ir; ir imports nothing internal,
// so it stays the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - no float types anywhere in Value - use int64 for numbers
//   - all JSON tags use snake_case
//   - Mtime is a tagged variant (Known/Unknown/External), never a bare
//     struct with sentinel fields
package ir
