// Package storage provides the persistence boundary of the platform.
//
// The Store interface accepts a visibility Predicate built by the scope
// filter and applies it ahead of search filters, sorting and pagination.
// SQLStore implements Store over database/sql; production runs it against
// PostgreSQL (lib/pq), tests against in-memory SQLite. Both drivers accept
// the numbered placeholders the predicate renderer emits.
package storage
