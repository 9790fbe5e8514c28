// Package postgres implements store.Store on pgx/v5. Jobs are claimed with
// FOR UPDATE SKIP LOCKED, subscribers wait on LISTEN/NOTIFY, and the
// schema ships as embedded migrations.
//
// tenant_id is a nullable TEXT column on jobs, dead-letter entries and
// events. NULL means the row was produced without a tenant; it is never
// replaced by a default tenant.
package postgres
