package initializers

import (
	"database/sql"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// InitDefaults seeds a demo workspace with three users when SEED_DEMO_DATA
// is set. Safe to run repeatedly; existing rows are reused.
func InitDefaults(db *sql.DB) error {
	if !strings.EqualFold(os.Getenv("SEED_DEMO_DATA"), "true") {
		return nil
	}

	john, err := ensureUser(db, "John Doe", "john.doe@example.com", "password123")
	if err != nil {
		return err
	}
	jane, err := ensureUser(db, "Jane Smith", "jane.smith@example.com", "password123")
	if err != nil {
		return err
	}
	mike, err := ensureUser(db, "Mike Johnson", "mike.johnson@example.com", "password123")
	if err != nil {
		return err
	}

	wsID, err := ensureWorkspace(db, "Acme Corporation", "acme-corp", "Main workspace for Acme Corporation", john)
	if err != nil {
		return err
	}

	if err := ensureMember(db, john, wsID, "ADMIN", "Workspace owner"); err != nil {
		return err
	}
	if err := ensureMember(db, jane, wsID, "MEMBER", "Welcome to the team!"); err != nil {
		return err
	}
	return ensureMember(db, mike, wsID, "MEMBER", "Excited to join!")
}

func ensureUser(db *sql.DB, name, email, password string) (int, error) {
	var id int
	err := db.QueryRow("SELECT id FROM users WHERE email = $1", email).Scan(&id)
	if err == sql.ErrNoRows {
		hash, hashErr := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if hashErr != nil {
			return 0, hashErr
		}
		err = db.QueryRow(`
			INSERT INTO users (name, email, password_hash, created_at)
			VALUES ($1, $2, $3, NOW())
			RETURNING id
		`, name, email, string(hash)).Scan(&id)
		if err != nil {
			return 0, err
		}
	} else if err != nil {
		return 0, err
	}
	return id, nil
}

func ensureWorkspace(db *sql.DB, name, slug, description string, ownerID int) (int, error) {
	var id int
	err := db.QueryRow("SELECT id FROM workspaces WHERE slug = $1", slug).Scan(&id)
	if err == sql.ErrNoRows {
		err = db.QueryRow(`
			INSERT INTO workspaces (name, slug, description, owner_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, NOW(), NOW())
			RETURNING id
		`, name, slug, description, ownerID).Scan(&id)
		if err != nil {
			return 0, err
		}
	} else if err != nil {
		return 0, err
	}
	return id, nil
}

func ensureMember(db *sql.DB, userID, workspaceID int, role, message string) error {
	_, err := db.Exec(`
		INSERT INTO workspace_members (user_id, workspace_id, role, message, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id, workspace_id) DO NOTHING
	`, userID, workspaceID, role, message)
	return err
}
