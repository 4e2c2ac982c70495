package repository

import (
	"database/sql"
	"planhub-api/models"
)

type CommentsRepository struct {
	db *sql.DB
}

func NewCommentsRepository(db *sql.DB) *CommentsRepository {
	return &CommentsRepository{db: db}
}

func (r *CommentsRepository) CreateComment(taskID, userID int, content string) (*models.Comment, error) {
	var id int
	err := r.db.QueryRow(`
		INSERT INTO comments (task_id, user_id, content, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id
	`, taskID, userID, content).Scan(&id)
	if err != nil {
		return nil, err
	}
	return r.GetCommentByID(id)
}

func (r *CommentsRepository) GetCommentByID(id int) (*models.Comment, error) {
	var cm models.Comment
	var u models.PublicUser
	var tr models.TaskRef
	err := r.db.QueryRow(`
		SELECT c.id, c.task_id, c.user_id, c.content, c.created_at,
		       u.id, u.name, u.email, u.image,
		       t.id, t.project_id, p.workspace_id
		FROM comments c
		JOIN users u ON u.id = c.user_id
		JOIN tasks t ON t.id = c.task_id
		JOIN projects p ON p.id = t.project_id
		WHERE c.id = $1
	`, id).Scan(
		&cm.ID, &cm.TaskID, &cm.UserID, &cm.Content, &cm.CreatedAt,
		&u.ID, &u.Name, &u.Email, &u.Image,
		&tr.ID, &tr.ProjectID, &tr.WorkspaceID,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	cm.User = &u
	cm.Task = &tr
	return &cm, nil
}

func (r *CommentsRepository) GetCommentsByTask(taskID int) ([]models.Comment, error) {
	rows, err := r.db.Query(`
		SELECT c.id, c.task_id, c.user_id, c.content, c.created_at,
		       u.id, u.name, u.email, u.image
		FROM comments c
		JOIN users u ON u.id = c.user_id
		WHERE c.task_id = $1
		ORDER BY c.created_at
	`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		var cm models.Comment
		var u models.PublicUser
		if err := rows.Scan(
			&cm.ID, &cm.TaskID, &cm.UserID, &cm.Content, &cm.CreatedAt,
			&u.ID, &u.Name, &u.Email, &u.Image,
		); err != nil {
			return nil, err
		}
		cm.User = &u
		comments = append(comments, cm)
	}
	return comments, rows.Err()
}

func (r *CommentsRepository) UpdateComment(id int, content string) (*models.Comment, error) {
	_, err := r.db.Exec(`UPDATE comments SET content = $1 WHERE id = $2`, content, id)
	if err != nil {
		return nil, err
	}
	return r.GetCommentByID(id)
}

func (r *CommentsRepository) DeleteComment(id int) error {
	_, err := r.db.Exec(`DELETE FROM comments WHERE id = $1`, id)
	return err
}
