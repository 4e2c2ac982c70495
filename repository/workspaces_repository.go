package repository

import (
	"context"
	"database/sql"
	"planhub-api/models"
)

type WorkspacesRepository struct {
	db *sql.DB
}

func NewWorkspacesRepository(db *sql.DB) *WorkspacesRepository {
	return &WorkspacesRepository{db: db}
}

func (r *WorkspacesRepository) CreateWorkspace(name, slug, description, imageURL string, ownerID int) (*models.Workspace, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var wsID int
	err = tx.QueryRow(`
		INSERT INTO workspaces (name, slug, description, image_url, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id
	`, name, slug, description, imageURL, ownerID).Scan(&wsID)
	if err != nil {
		return nil, err
	}

	// The owner is always an admin member of their own workspace.
	_, err = tx.Exec(`
		INSERT INTO workspace_members (user_id, workspace_id, role, message, created_at)
		VALUES ($1, $2, $3, 'Workspace owner', NOW())
		ON CONFLICT (user_id, workspace_id) DO UPDATE SET role = EXCLUDED.role
	`, ownerID, wsID, models.RoleAdmin)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return r.GetWorkspaceByID(wsID)
}

func (r *WorkspacesRepository) GetWorkspaceByID(id int) (*models.Workspace, error) {
	var w models.Workspace
	var owner models.PublicUser
	err := r.db.QueryRow(`
		SELECT w.id, w.name, w.slug, w.description, w.image_url, w.owner_id,
		       w.created_at, w.updated_at,
		       u.id, u.name, u.email, u.image,
		       (SELECT COUNT(*) FROM projects p WHERE p.workspace_id = w.id),
		       (SELECT COUNT(*) FROM workspace_members m WHERE m.workspace_id = w.id)
		FROM workspaces w
		JOIN users u ON u.id = w.owner_id
		WHERE w.id = $1
	`, id).Scan(
		&w.ID, &w.Name, &w.Slug, &w.Description, &w.ImageURL, &w.OwnerID,
		&w.CreatedAt, &w.UpdatedAt,
		&owner.ID, &owner.Name, &owner.Email, &owner.Image,
		&w.ProjectCount, &w.MemberCount,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	w.Owner = &owner

	members, err := r.GetMembers(id)
	if err != nil {
		return nil, err
	}
	w.Members = members
	return &w, nil
}

func (r *WorkspacesRepository) SlugExists(slug string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(`SELECT EXISTS (SELECT 1 FROM workspaces WHERE slug = $1)`, slug).Scan(&exists)
	return exists, err
}

// GetWorkspacesForUser returns every workspace the user owns or is a member of,
// newest first, with owner profiles and counts populated.
func (r *WorkspacesRepository) GetWorkspacesForUser(userID int) ([]models.Workspace, error) {
	rows, err := r.db.Query(`
		SELECT DISTINCT w.id
		FROM workspaces w
		LEFT JOIN workspace_members m ON m.workspace_id = w.id
		WHERE w.owner_id = $1 OR m.user_id = $1
		ORDER BY w.id DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	workspaces := make([]models.Workspace, 0, len(ids))
	for _, id := range ids {
		w, err := r.GetWorkspaceByID(id)
		if err != nil {
			return nil, err
		}
		if w != nil {
			workspaces = append(workspaces, *w)
		}
	}
	return workspaces, nil
}

// UpdateWorkspace patches the provided fields; nil fields are left unchanged.
func (r *WorkspacesRepository) UpdateWorkspace(id int, name, description, imageURL *string) (*models.Workspace, error) {
	_, err := r.db.Exec(`
		UPDATE workspaces
		SET name = COALESCE($2, name),
		    description = COALESCE($3, description),
		    image_url = COALESCE($4, image_url),
		    updated_at = NOW()
		WHERE id = $1
	`, id, name, description, imageURL)
	if err != nil {
		return nil, err
	}
	return r.GetWorkspaceByID(id)
}

func (r *WorkspacesRepository) DeleteWorkspace(id int) error {
	_, err := r.db.Exec(`DELETE FROM workspaces WHERE id = $1`, id)
	return err
}

// IsMember reports whether a WorkspaceMember record exists for (user, workspace).
// The realtime hub calls this on every join, so it takes a context.
func (r *WorkspacesRepository) IsMember(ctx context.Context, userID, workspaceID int) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM workspace_members
			WHERE user_id = $1 AND workspace_id = $2
		)
	`, userID, workspaceID).Scan(&exists)
	return exists, err
}

// GetMemberRole returns the member's role, or "" if not a member.
func (r *WorkspacesRepository) GetMemberRole(userID, workspaceID int) (string, error) {
	var role string
	err := r.db.QueryRow(`
		SELECT role FROM workspace_members
		WHERE user_id = $1 AND workspace_id = $2
	`, userID, workspaceID).Scan(&role)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return role, nil
}

func (r *WorkspacesRepository) GetMembers(workspaceID int) ([]models.WorkspaceMember, error) {
	rows, err := r.db.Query(`
		SELECT m.id, m.user_id, m.workspace_id, m.role, m.message, m.created_at,
		       u.id, u.name, u.email, u.image
		FROM workspace_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.workspace_id = $1
		ORDER BY m.created_at
	`, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []models.WorkspaceMember
	for rows.Next() {
		var m models.WorkspaceMember
		var u models.PublicUser
		if err := rows.Scan(
			&m.ID, &m.UserID, &m.WorkspaceID, &m.Role, &m.Message, &m.CreatedAt,
			&u.ID, &u.Name, &u.Email, &u.Image,
		); err != nil {
			return nil, err
		}
		m.User = &u
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *WorkspacesRepository) AddMember(workspaceID, userID int, role, message string) (*models.WorkspaceMember, error) {
	var id int
	err := r.db.QueryRow(`
		INSERT INTO workspace_members (user_id, workspace_id, role, message, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id
	`, userID, workspaceID, role, message).Scan(&id)
	if err != nil {
		return nil, err
	}
	return r.getMemberByID(id)
}

func (r *WorkspacesRepository) getMemberByID(id int) (*models.WorkspaceMember, error) {
	var m models.WorkspaceMember
	var u models.PublicUser
	err := r.db.QueryRow(`
		SELECT m.id, m.user_id, m.workspace_id, m.role, m.message, m.created_at,
		       u.id, u.name, u.email, u.image
		FROM workspace_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.id = $1
	`, id).Scan(
		&m.ID, &m.UserID, &m.WorkspaceID, &m.Role, &m.Message, &m.CreatedAt,
		&u.ID, &u.Name, &u.Email, &u.Image,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	m.User = &u
	return &m, nil
}

func (r *WorkspacesRepository) RemoveMember(workspaceID, userID int) error {
	_, err := r.db.Exec(`
		DELETE FROM workspace_members WHERE workspace_id = $1 AND user_id = $2
	`, workspaceID, userID)
	return err
}

func (r *WorkspacesRepository) UpdateMemberRole(workspaceID, userID int, role string) (*models.WorkspaceMember, error) {
	var id int
	err := r.db.QueryRow(`
		UPDATE workspace_members SET role = $3
		WHERE workspace_id = $1 AND user_id = $2
		RETURNING id
	`, workspaceID, userID, role).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r.getMemberByID(id)
}
