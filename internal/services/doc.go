// Package services implements the business logic layer of the voltage
// analysis application. It provides a clean separation between HTTP handlers,
// the batch CLI, and the ingestion/resolution/aggregation engines, ensuring
// that business rules are centralized and testable.
//
// The AnalyzerService owns the in-memory dataset and the reference workbook
// lifecycle: ingestion, zone resolution, filtering, violation aggregation,
// fuzzy correction, and exports all go through it. Handlers translate HTTP
// to service calls; the service returns domain errors that handlers map to
// status codes.
package services
