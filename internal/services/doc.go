// Package services defines shared utilities consumed by the pipeline workers
// and their external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp document correlation IDs, stage names, and
//     source paths for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     (configuration, extraction, delete, delivery, watch) so callers decide
//     with errors.Is whether a failure is fatal or contained.
//
// The subpackages pdftext and smtp hold the concrete text extraction and mail
// transport capabilities.
package services
