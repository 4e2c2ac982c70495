package repository

import (
	"database/sql"
	"planhub-api/models"
	"time"
)

type ProjectsRepository struct {
	db *sql.DB
}

func NewProjectsRepository(db *sql.DB) *ProjectsRepository {
	return &ProjectsRepository{db: db}
}

func (r *ProjectsRepository) CreateProject(workspaceID int, name, description, status, priority string, teamLead int, startDate, endDate *time.Time) (*models.Project, error) {
	var id int
	err := r.db.QueryRow(`
		INSERT INTO projects (workspace_id, name, description, status, priority, team_lead, start_date, end_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING id
	`, workspaceID, name, description, status, priority, teamLead, startDate, endDate).Scan(&id)
	if err != nil {
		return nil, err
	}
	return r.GetProjectByID(id)
}

func (r *ProjectsRepository) GetProjectByID(id int) (*models.Project, error) {
	var p models.Project
	var owner models.PublicUser
	err := r.db.QueryRow(`
		SELECT p.id, p.workspace_id, p.name, p.description, p.status, p.priority,
		       p.team_lead, p.start_date, p.end_date, p.created_at, p.updated_at,
		       u.id, u.name, u.email, u.image,
		       (SELECT COUNT(*) FROM tasks t WHERE t.project_id = p.id),
		       (SELECT COUNT(*) FROM project_members m WHERE m.project_id = p.id)
		FROM projects p
		JOIN users u ON u.id = p.team_lead
		WHERE p.id = $1
	`, id).Scan(
		&p.ID, &p.WorkspaceID, &p.Name, &p.Description, &p.Status, &p.Priority,
		&p.TeamLead, &p.StartDate, &p.EndDate, &p.CreatedAt, &p.UpdatedAt,
		&owner.ID, &owner.Name, &owner.Email, &owner.Image,
		&p.TaskCount, &p.MemberCount,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.Owner = &owner

	members, err := r.GetProjectMembers(id)
	if err != nil {
		return nil, err
	}
	p.Members = members
	return &p, nil
}

func (r *ProjectsRepository) GetProjectsByWorkspace(workspaceID int) ([]models.Project, error) {
	rows, err := r.db.Query(`
		SELECT id FROM projects WHERE workspace_id = $1 ORDER BY created_at DESC
	`, workspaceID)
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

	projects := make([]models.Project, 0, len(ids))
	for _, id := range ids {
		p, err := r.GetProjectByID(id)
		if err != nil {
			return nil, err
		}
		if p != nil {
			projects = append(projects, *p)
		}
	}
	return projects, nil
}

// UpdateProject patches the provided fields; nil fields are left unchanged.
func (r *ProjectsRepository) UpdateProject(id int, name, description, status, priority *string, startDate, endDate *time.Time) (*models.Project, error) {
	_, err := r.db.Exec(`
		UPDATE projects
		SET name = COALESCE($2, name),
		    description = COALESCE($3, description),
		    status = COALESCE($4, status),
		    priority = COALESCE($5, priority),
		    start_date = COALESCE($6, start_date),
		    end_date = COALESCE($7, end_date),
		    updated_at = NOW()
		WHERE id = $1
	`, id, name, description, status, priority, startDate, endDate)
	if err != nil {
		return nil, err
	}
	return r.GetProjectByID(id)
}

func (r *ProjectsRepository) DeleteProject(id int) error {
	_, err := r.db.Exec(`DELETE FROM projects WHERE id = $1`, id)
	return err
}

func (r *ProjectsRepository) GetProjectMembers(projectID int) ([]models.ProjectMember, error) {
	rows, err := r.db.Query(`
		SELECT m.id, m.user_id, m.project_id, m.created_at,
		       u.id, u.name, u.email, u.image
		FROM project_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.project_id = $1
		ORDER BY m.created_at
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []models.ProjectMember
	for rows.Next() {
		var m models.ProjectMember
		var u models.PublicUser
		if err := rows.Scan(
			&m.ID, &m.UserID, &m.ProjectID, &m.CreatedAt,
			&u.ID, &u.Name, &u.Email, &u.Image,
		); err != nil {
			return nil, err
		}
		m.User = &u
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *ProjectsRepository) IsProjectMember(projectID, userID int) (bool, error) {
	var exists bool
	err := r.db.QueryRow(`
		SELECT EXISTS (
			SELECT 1 FROM project_members WHERE project_id = $1 AND user_id = $2
		)
	`, projectID, userID).Scan(&exists)
	return exists, err
}

func (r *ProjectsRepository) AddProjectMember(projectID, userID int) (*models.ProjectMember, error) {
	var m models.ProjectMember
	var u models.PublicUser
	err := r.db.QueryRow(`
		WITH inserted AS (
			INSERT INTO project_members (user_id, project_id, created_at)
			VALUES ($1, $2, NOW())
			RETURNING id, user_id, project_id, created_at
		)
		SELECT i.id, i.user_id, i.project_id, i.created_at,
		       u.id, u.name, u.email, u.image
		FROM inserted i
		JOIN users u ON u.id = i.user_id
	`, userID, projectID).Scan(
		&m.ID, &m.UserID, &m.ProjectID, &m.CreatedAt,
		&u.ID, &u.Name, &u.Email, &u.Image,
	)
	if err != nil {
		return nil, err
	}
	m.User = &u
	return &m, nil
}

func (r *ProjectsRepository) RemoveProjectMember(projectID, userID int) error {
	_, err := r.db.Exec(`
		DELETE FROM project_members WHERE project_id = $1 AND user_id = $2
	`, projectID, userID)
	return err
}
