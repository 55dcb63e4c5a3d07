package database

import (
	"database/sql"
)

type PgEventHubRepository struct {
	conn *sql.DB
}

func NewPgEventHubRepository(dsn string) (*PgEventHubRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &PgEventHubRepository{conn: db}, nil
}

func (db *PgEventHubRepository) Ping() error {
	return db.conn.Ping()
}

func (db *PgEventHubRepository) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}
