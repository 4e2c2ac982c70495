package repository

import (
	"context"
	"database/sql"
	"planhub-api/models"

	"golang.org/x/crypto/bcrypt"
)

type UsersRepository struct {
	db *sql.DB
}

func NewUsersRepository(db *sql.DB) *UsersRepository {
	return &UsersRepository{db: db}
}

func (r *UsersRepository) CreateUser(name, email, password string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	var id int
	err = r.db.QueryRow(`
		INSERT INTO users (name, email, password_hash, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id
	`, name, email, string(hash)).Scan(&id)
	if err != nil {
		return nil, err
	}
	return r.GetUserByID(id)
}

func (r *UsersRepository) GetUserByID(id int) (*models.User, error) {
	var u models.User
	err := r.db.QueryRow(`
		SELECT id, name, email, password_hash, image, created_at
		FROM users
		WHERE id = $1
	`, id).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Image, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUser is the context-aware lookup used by the realtime hub during
// handshake authentication, which runs under a bounded timeout.
func (r *UsersRepository) GetUser(ctx context.Context, id int) (*models.User, error) {
	var u models.User
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, image, created_at
		FROM users
		WHERE id = $1
	`, id).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Image, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UsersRepository) GetUserByEmail(email string) (*models.User, error) {
	var u models.User
	err := r.db.QueryRow(`
		SELECT id, name, email, password_hash, image, created_at
		FROM users
		WHERE email = $1
	`, email).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Image, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateProfile patches name and/or email; nil fields are left unchanged.
func (r *UsersRepository) UpdateProfile(id int, name, email *string) (*models.User, error) {
	_, err := r.db.Exec(`
		UPDATE users
		SET name = COALESCE($2, name), email = COALESCE($3, email)
		WHERE id = $1
	`, id, name, email)
	if err != nil {
		return nil, err
	}
	return r.GetUserByID(id)
}

func (r *UsersRepository) UpdatePassword(id int, newPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(`UPDATE users SET password_hash = $2 WHERE id = $1`, id, string(hash))
	return err
}

func (r *UsersRepository) UpdateImage(id int, image string) error {
	_, err := r.db.Exec(`UPDATE users SET image = $2 WHERE id = $1`, id, image)
	return err
}

// Avatar is the metadata for an uploaded avatar object stored in MinIO.
type Avatar struct {
	ID          string
	UserID      int
	ContentType string
	Size        int64
}

func (r *UsersRepository) CreateAvatar(id string, userID int, contentType string, size int64) error {
	_, err := r.db.Exec(`
		INSERT INTO avatars (id, user_id, content_type, size, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`, id, userID, contentType, size)
	return err
}

func (r *UsersRepository) GetAvatar(id string) (*Avatar, error) {
	var a Avatar
	err := r.db.QueryRow(`
		SELECT id, user_id, content_type, size FROM avatars WHERE id = $1
	`, id).Scan(&a.ID, &a.UserID, &a.ContentType, &a.Size)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
