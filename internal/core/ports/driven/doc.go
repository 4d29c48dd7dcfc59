// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - DocumentStore: Document record persistence with atomic check-and-insert
//   - BlobStore: Retention of the original PDF bytes
//   - PageRenderer: Page counting and page-to-markdown rendering
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - Fetcher: Downloads PDFs. Without it, ingestion is disabled.
//   - LLMService: Language model calls. Without it, ingestion is disabled
//     while retrieval keeps working.
//   - PromptStore: Customisable prompts. Without it, built-in prompts are used.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
