// Package app provides the application service layer.
//
// Orchestrates the conversion pipeline for one unit: license gate at the
// first-file boundary, archive inspection, image qualification, session
// accumulation, and packaging plus settlement at the last-file boundary.
// Sits between HTTP handlers and the pipeline components. Depends on
// interfaces, not concrete implementations.
package app
