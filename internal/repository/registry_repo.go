// Package repository provides data access for the persisted registry.
package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tinyclaw/gateway/internal/model"
)

// RegistryRepository mirrors the gateway's live registry into sqlite so the
// declared agents and channels can be inspected across restarts.
type RegistryRepository struct {
	db *sql.DB
}

// NewRegistryRepository creates a RegistryRepository on an open database.
func NewRegistryRepository(db *sql.DB) *RegistryRepository {
	return &RegistryRepository{db: db}
}

// SaveAgent inserts or replaces an agent record.
func (r *RegistryRepository) SaveAgent(ctx context.Context, rec model.AgentRecord) error {
	query := `
		INSERT INTO agents (id, type, shell, workdir, status)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type = excluded.type,
			shell = excluded.shell,
			workdir = excluded.workdir,
			status = excluded.status
	`
	status := rec.Status
	if status == "" {
		status = model.AgentRecordRunning
	}
	if _, err := r.db.ExecContext(ctx, query, rec.ID, rec.Type, rec.Shell, rec.Workdir, status); err != nil {
		return fmt.Errorf("save agent: %w", err)
	}
	return nil
}

// DeleteAgent marks an agent record removed. The row is kept for inspection.
func (r *RegistryRepository) DeleteAgent(ctx context.Context, id string) error {
	query := `UPDATE agents SET status = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, model.AgentRecordRemoved, id); err != nil {
		return fmt.Errorf("delete agent: %w", err)
	}
	return nil
}

// SaveChannel inserts or replaces a channel record.
func (r *RegistryRepository) SaveChannel(ctx context.Context, rec model.ChannelRecord) error {
	query := `
		INSERT INTO channels (id, type, agent_id)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type = excluded.type,
			agent_id = excluded.agent_id
	`
	if _, err := r.db.ExecContext(ctx, query, rec.ID, rec.Type, rec.AgentID); err != nil {
		return fmt.Errorf("save channel: %w", err)
	}
	return nil
}

// DeleteChannel removes a channel record.
func (r *RegistryRepository) DeleteChannel(ctx context.Context, id string) error {
	query := `DELETE FROM channels WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete channel: %w", err)
	}
	return nil
}

// ListAgents returns every persisted agent record, newest first.
func (r *RegistryRepository) ListAgents(ctx context.Context) ([]model.AgentRecord, error) {
	query := `
		SELECT id, type, shell, workdir, status, created_at
		FROM agents
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var records []model.AgentRecord
	for rows.Next() {
		var rec model.AgentRecord
		var workdir sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Type, &rec.Shell, &workdir, &rec.Status, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		if workdir.Valid {
			rec.Workdir = workdir.String
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate agents: %w", err)
	}
	return records, nil
}

// ListChannels returns every persisted channel record, newest first.
func (r *RegistryRepository) ListChannels(ctx context.Context) ([]model.ChannelRecord, error) {
	query := `
		SELECT id, type, agent_id, created_at
		FROM channels
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	var records []model.ChannelRecord
	for rows.Next() {
		var rec model.ChannelRecord
		if err := rows.Scan(&rec.ID, &rec.Type, &rec.AgentID, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate channels: %w", err)
	}
	return records, nil
}
