package repository

// SchemaSQL bootstraps the two keyed collections and their secondary indexes.
const SchemaSQL = `
CREATE TABLE IF NOT EXISTS technicians (
    external_id   BIGINT PRIMARY KEY,
    login         TEXT NOT NULL,
    name          TEXT NOT NULL,
    area          TEXT NOT NULL,
    phone         TEXT NOT NULL,
    is_privileged BOOLEAN NOT NULL DEFAULT FALSE,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
    CONSTRAINT technicians_login_key UNIQUE (login)
);

CREATE TABLE IF NOT EXISTS occurrences (
    seq        BIGSERIAL,
    id         TEXT PRIMARY KEY,
    owner_id   BIGINT NOT NULL,
    contract   TEXT NOT NULL DEFAULT '',
    category   TEXT NOT NULL,
    status     TEXT NOT NULL DEFAULT 'pending',
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL,
    updated_by BIGINT NOT NULL DEFAULT 0,
    notes      TEXT NOT NULL DEFAULT '',
    location   TEXT NOT NULL DEFAULT '',
    urgency    TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS occurrences_owner_idx ON occurrences (owner_id, created_at DESC);
CREATE INDEX IF NOT EXISTS occurrences_contract_idx ON occurrences (contract);
CREATE INDEX IF NOT EXISTS occurrences_status_idx ON occurrences (status);
`

const (
	constraintTechniciansPK    = "technicians_pkey"
	constraintTechniciansLogin = "technicians_login_key"
	constraintOccurrencesPK    = "occurrences_pkey"
)

const (
	SelectTechnicianSQL = `SELECT external_id, login, name, area, phone, is_privileged, created_at
FROM technicians WHERE external_id = $1`

	InsertTechnicianSQL = `INSERT INTO technicians (external_id, login, name, area, phone, is_privileged, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	LoginTakenSQL = `SELECT EXISTS (SELECT 1 FROM technicians WHERE login = $1 AND external_id <> $2)`

	UpdatePrivilegedSQL = `UPDATE technicians SET is_privileged = $2 WHERE external_id = $1`

	DeleteTechnicianSQL = `DELETE FROM technicians WHERE external_id = $1`

	DeleteOccurrencesByOwnerSQL = `DELETE FROM occurrences WHERE owner_id = $1`
)

const occurrenceColumns = `id, owner_id, contract, category, status, created_at, updated_at, updated_by, notes, location, urgency`

const (
	InsertOccurrenceSQL = `INSERT INTO occurrences (` + occurrenceColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	SelectOccurrenceSQL = `SELECT ` + occurrenceColumns + ` FROM occurrences WHERE id = $1`

	SelectOccurrencesByOwnerSQL = `SELECT ` + occurrenceColumns + ` FROM occurrences
WHERE owner_id = $1 AND created_at >= $2 ORDER BY created_at DESC, seq DESC`

	SelectOccurrencesByContractSQL = `SELECT ` + occurrenceColumns + ` FROM occurrences
WHERE contract = $1 ORDER BY seq`

	SelectOccurrencesByStatusSQL = `SELECT ` + occurrenceColumns + ` FROM occurrences
WHERE status = $1 ORDER BY created_at, seq`

	SelectOccurrencesSQL = `SELECT ` + occurrenceColumns + ` FROM occurrences ORDER BY seq`

	UpdateOccurrenceStatusSQL = `UPDATE occurrences SET status = $3, updated_at = $4, updated_by = $5
WHERE id = $1 AND status = $2
RETURNING ` + occurrenceColumns
)
