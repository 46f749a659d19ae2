package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// StaticClientsRepo serves the configured client list. Used when the client
// set is managed through the environment instead of the database.
type StaticClientsRepo struct {
	names []string
}

func NewStaticClientsRepo(names []string) *StaticClientsRepo {
	return &StaticClientsRepo{names: names}
}

func (r *StaticClientsRepo) ListClients(ctx context.Context) ([]string, error) {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out, nil
}

// PostgresClientsRepo reads the client list from the clients table, so new
// tenants are picked up on the next scheduler tick without a restart.
type PostgresClientsRepo struct {
	db *sql.DB
}

func NewPostgresClientsRepo(db *sql.DB) *PostgresClientsRepo {
	return &PostgresClientsRepo{db: db}
}

func (r *PostgresClientsRepo) ListClients(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM clients ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query clients: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
