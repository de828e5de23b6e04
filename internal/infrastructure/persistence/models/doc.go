// Package models contains GORM persistence models that map to database tables.
// They are kept apart from the domain entities so the domain layer stays free
// of ORM tags; each model converts with ToDomain / FromDomain.
//
// Tables:
//   - product_sizes: size variants and their denormalized stock counter
//   - product_batches: received lots
//   - batch_transactions: append-only lot audit log
package models
