package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

func (s *SQLiteStore) CreateTenant(ctx context.Context, t *Tenant) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Plan == "" {
		t.Plan = "free"
	}
	now := formatTime(time.Now())
	_, err := s.writeDB.ExecContext(ctx,
		`INSERT INTO tenants (id, name, plan, created_at) VALUES (?, ?, ?, ?)`,
		t.ID, t.Name, t.Plan, now)
	if err != nil {
		return err
	}
	t.CreatedAt = parseTime(now)
	return nil
}

func (s *SQLiteStore) GetTenant(ctx context.Context, id string) (*Tenant, error) {
	var t Tenant
	var createdAt string
	err := s.readDB.QueryRowContext(ctx,
		`SELECT id, name, plan, created_at FROM tenants WHERE id=?`, id).
		Scan(&t.ID, &t.Name, &t.Plan, &createdAt)
	if err != nil {
		return nil, err
	}
	t.CreatedAt = parseTime(createdAt)
	return &t, nil
}

func (s *SQLiteStore) CreateGroup(ctx context.Context, g *Group) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	now := formatTime(time.Now())
	_, err := s.writeDB.ExecContext(ctx,
		`INSERT INTO groups (id, tenant_id, name, maint_start, maint_end, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		g.ID, g.TenantID, g.Name, formatTimePtr(g.MaintStart), formatTimePtr(g.MaintEnd), now)
	if err != nil {
		return err
	}
	g.CreatedAt = parseTime(now)
	return nil
}

func (s *SQLiteStore) GetGroup(ctx context.Context, id string) (*Group, error) {
	var g Group
	var maintStart, maintEnd sql.NullString
	var createdAt string
	err := s.readDB.QueryRowContext(ctx,
		`SELECT id, tenant_id, name, maint_start, maint_end, created_at FROM groups WHERE id=?`, id).
		Scan(&g.ID, &g.TenantID, &g.Name, &maintStart, &maintEnd, &createdAt)
	if err != nil {
		return nil, err
	}
	g.MaintStart = parseTimePtr(maintStart)
	g.MaintEnd = parseTimePtr(maintEnd)
	g.CreatedAt = parseTime(createdAt)
	return &g, nil
}

// SetGroupMaintenance sets or clears the group maintenance window. A nil
// start clears the window entirely.
func (s *SQLiteStore) SetGroupMaintenance(ctx context.Context, id string, start, end *time.Time) error {
	_, err := s.writeDB.ExecContext(ctx,
		`UPDATE groups SET maint_start=?, maint_end=? WHERE id=?`,
		formatTimePtr(start), formatTimePtr(end), id)
	return err
}
