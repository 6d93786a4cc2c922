package db

import (
	"database/sql"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    email TEXT UNIQUE NOT NULL,
    name TEXT NOT NULL DEFAULT '',
    role TEXT NOT NULL DEFAULT 'participant',
    password_hash TEXT NOT NULL DEFAULT '',
    ast_workshop_completed BOOLEAN NOT NULL DEFAULT FALSE,
    ia_workshop_completed BOOLEAN NOT NULL DEFAULT FALSE,
    ast_completed_at DATETIME,
    ia_completed_at DATETIME,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS assessment_records (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL REFERENCES users(id),
    record_type TEXT NOT NULL,
    schema_version INTEGER NOT NULL DEFAULT 1,
    payload TEXT NOT NULL DEFAULT '{}',
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_assessment_records_user ON assessment_records(user_id);

CREATE TABLE IF NOT EXISTS navigation_progress (
    user_id INTEGER NOT NULL REFERENCES users(id),
    workshop_type TEXT NOT NULL,
    current_step_id TEXT NOT NULL,
    completed_steps TEXT NOT NULL DEFAULT '[]',
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (user_id, workshop_type)
);
`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
