package postgres

import (
	"context"
	"errors"

	"github.com/and161185/annotator/internal/errs"
	"github.com/and161185/annotator/internal/model"
	"github.com/jackc/pgx/v5"
)

// GroupRepo implements GroupRepository using PostgreSQL.
type GroupRepo struct{ db *DB }

// NewGroupRepo constructs a group repository.
func NewGroupRepo(db *DB) *GroupRepo { return &GroupRepo{db: db} }

// GetByName selects a group by its unique name.
func (r *GroupRepo) GetByName(ctx context.Context, name string) (*model.Group, error) {
	const q = `SELECT id, name, display_name, is_public FROM groups WHERE name=$1`
	var g model.Group
	if err := r.db.Pool.QueryRow(ctx, q, name).Scan(&g.ID, &g.Name, &g.DisplayName, &g.Public); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}

// GroupsOf lists the names of the groups login is a member of.
func (r *GroupRepo) GroupsOf(ctx context.Context, login string) ([]string, error) {
	const q = `
SELECT g.name
FROM groups g
JOIN user_groups ug ON ug.group_id = g.id
JOIN users u ON u.id = ug.user_id
WHERE u.login=$1
ORDER BY g.name`
	rows, err := r.db.Pool.Query(ctx, q, login)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}
