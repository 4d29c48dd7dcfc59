// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// IngestService is the only writer. RetrievalService reads stored records
// and re-renders page ranges from the retained PDF bytes on every call.
package services
