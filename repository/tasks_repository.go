package repository

import (
	"database/sql"
	"planhub-api/models"
	"time"
)

type TasksRepository struct {
	db *sql.DB
}

func NewTasksRepository(db *sql.DB) *TasksRepository {
	return &TasksRepository{db: db}
}

func (r *TasksRepository) CreateTask(projectID int, title, description, status, priority string, assigneeID *int, dueDate *time.Time) (*models.Task, error) {
	var id int
	err := r.db.QueryRow(`
		INSERT INTO tasks (project_id, title, description, status, priority, assignee_id, due_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING id
	`, projectID, title, description, status, priority, assigneeID, dueDate).Scan(&id)
	if err != nil {
		return nil, err
	}
	return r.GetTaskByID(id)
}

func (r *TasksRepository) GetTaskByID(id int) (*models.Task, error) {
	var t models.Task
	var pr models.ProjectRef
	var assigneeID sql.NullInt64
	var aName, aEmail, aImage sql.NullString
	err := r.db.QueryRow(`
		SELECT t.id, t.project_id, t.title, t.description, t.status, t.priority,
		       t.assignee_id, t.due_date, t.created_at, t.updated_at,
		       p.id, p.name, p.workspace_id,
		       u.name, u.email, u.image,
		       (SELECT COUNT(*) FROM comments c WHERE c.task_id = t.id)
		FROM tasks t
		JOIN projects p ON p.id = t.project_id
		LEFT JOIN users u ON u.id = t.assignee_id
		WHERE t.id = $1
	`, id).Scan(
		&t.ID, &t.ProjectID, &t.Title, &t.Description, &t.Status, &t.Priority,
		&assigneeID, &t.DueDate, &t.CreatedAt, &t.UpdatedAt,
		&pr.ID, &pr.Name, &pr.WorkspaceID,
		&aName, &aEmail, &aImage,
		&t.CommentCount,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t.Project = &pr
	if assigneeID.Valid {
		aid := int(assigneeID.Int64)
		t.AssigneeID = &aid
		t.Assignee = &models.PublicUser{
			ID:    aid,
			Name:  aName.String,
			Email: aEmail.String,
			Image: aImage.String,
		}
	}
	return &t, nil
}

func (r *TasksRepository) GetTasksByProject(projectID int) ([]models.Task, error) {
	rows, err := r.db.Query(`
		SELECT id FROM tasks WHERE project_id = $1 ORDER BY created_at DESC
	`, projectID)
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

	tasks := make([]models.Task, 0, len(ids))
	for _, id := range ids {
		t, err := r.GetTaskByID(id)
		if err != nil {
			return nil, err
		}
		if t != nil {
			tasks = append(tasks, *t)
		}
	}
	return tasks, nil
}

// UpdateTask patches the provided fields; nil fields are left unchanged.
func (r *TasksRepository) UpdateTask(id int, title, description, status, priority *string, assigneeID *int, dueDate *time.Time) (*models.Task, error) {
	_, err := r.db.Exec(`
		UPDATE tasks
		SET title = COALESCE($2, title),
		    description = COALESCE($3, description),
		    status = COALESCE($4, status),
		    priority = COALESCE($5, priority),
		    assignee_id = COALESCE($6, assignee_id),
		    due_date = COALESCE($7, due_date),
		    updated_at = NOW()
		WHERE id = $1
	`, id, title, description, status, priority, assigneeID, dueDate)
	if err != nil {
		return nil, err
	}
	return r.GetTaskByID(id)
}

func (r *TasksRepository) DeleteTask(id int) error {
	_, err := r.db.Exec(`DELETE FROM tasks WHERE id = $1`, id)
	return err
}
