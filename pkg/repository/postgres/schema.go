package postgres

const pendingSlotIndex = "requests_pending_slot"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		email      TEXT NOT NULL,
		role       TEXT NOT NULL,
		leader_id  TEXT NOT NULL DEFAULT '',
		active     BOOLEAN NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id             BIGSERIAL PRIMARY KEY,
		task_key       TEXT NOT NULL UNIQUE,
		title          TEXT NOT NULL,
		priority       TEXT NOT NULL,
		status         TEXT NOT NULL,
		owner_id       TEXT NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL,
		deadline       TIMESTAMPTZ NOT NULL,
		paused_for     BIGINT NOT NULL DEFAULT 0,
		completed_at   TIMESTAMPTZ,
		frozen_at      TIMESTAMPTZ,
		frozen_counter TEXT,
		freeze_reason  TEXT NOT NULL DEFAULT '',
		notes          TEXT NOT NULL DEFAULT '',
		updated_at     TIMESTAMPTZ NOT NULL,
		CHECK ((status = 'FROZEN') = (frozen_counter IS NOT NULL)),
		CHECK ((status = 'COMPLETED') = (completed_at IS NOT NULL))
	)`,
	`CREATE INDEX IF NOT EXISTS tasks_status_deadline ON tasks (status, deadline)`,
	`CREATE TABLE IF NOT EXISTS requests (
		id                 TEXT PRIMARY KEY,
		kind               TEXT NOT NULL,
		requester_id       TEXT NOT NULL,
		requester_name     TEXT NOT NULL,
		requester_email    TEXT NOT NULL,
		status             TEXT NOT NULL,
		notes              TEXT NOT NULL DEFAULT '',
		target             TEXT NOT NULL,
		reason             TEXT NOT NULL DEFAULT '',
		submitted_at       TIMESTAMPTZ NOT NULL,
		resolved_by        TEXT NOT NULL DEFAULT '',
		resolved_at        TIMESTAMPTZ,
		resolution_comment TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ` + pendingSlotIndex + `
		ON requests (kind, requester_id, target) WHERE status = 'PENDING'`,
	`CREATE INDEX IF NOT EXISTS requests_kind_submitted ON requests (kind, submitted_at, id)`,
}
