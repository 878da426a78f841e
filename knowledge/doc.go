// Package knowledge houses concrete implementations of the core.KnowledgeStore.
// The interface itself (and the KnowledgeEntry struct) live in the core package
// to centralize domain contracts. Keeping only implementations here prevents
// higher level packages (executor, coordinator) from depending on concrete
// storage.
//
// Add additional backends (Redis, Postgres, ...) in sub-packages without
// changing any calling code; only the wiring layer needs to decide which
// implementation to instantiate per run.
package knowledge
