package auth

import (
	"database/sql"

	"github.com/lib/pq"

	"inkwell/pkg/logger"
)

const uniqueViolation = "23505"

type UserRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{DB: db}
}

// Create inserts a new user. A unique-constraint violation on the email is
// reported as duplicate so the service can answer with a conflict.
func (r *UserRepository) Create(user *User) (duplicate bool, err error) {
	_, err = r.DB.Exec(`INSERT INTO users (email, name, password_hash, created_at) VALUES ($1, $2, $3, NOW())`,
		user.Email, user.Name, user.PasswordHash)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return true, err
		}
		logger.Sugar.Errorf("Failed to create user %s: %v", user.Email, err)
		return false, err
	}
	return false, nil
}

// GetByEmail returns sql.ErrNoRows for unknown users; the service folds that
// into the same generic answer as a wrong password.
func (r *UserRepository) GetByEmail(email string) (*User, error) {
	var u User
	err := r.DB.QueryRow(`SELECT email, name, password_hash, created_at FROM users WHERE email = $1`, email).
		Scan(&u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Sugar.Errorf("Failed to load user %s: %v", email, err)
		}
		return nil, err
	}
	return &u, nil
}
