package auth

import (
	"database/sql"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"inkwell/pkg/httperr"
)

const bcryptCost = 10

type AuthService struct {
	Repo     *UserRepository
	Secret   string
	TokenTTL time.Duration
}

func NewAuthService(repo *UserRepository, secret string, tokenTTL time.Duration) *AuthService {
	return &AuthService{Repo: repo, Secret: secret, TokenTTL: tokenTTL}
}

// Signup registers the user and returns a session token for them.
func (s *AuthService) Signup(req SignupRequest) (string, error) {
	if req.Email == "" || req.Name == "" || req.Password == "" {
		return "", httperr.Invalid("name, email and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return "", httperr.Internal(err)
	}

	duplicate, err := s.Repo.Create(&User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: string(hash),
	})
	if duplicate {
		return "", httperr.Conflict("email already registered")
	}
	if err != nil {
		return "", httperr.Internal(err)
	}

	token, err := IssueToken(s.Secret, req.Email, s.TokenTTL)
	if err != nil {
		return "", httperr.Internal(err)
	}
	return token, nil
}

// Login checks the credentials and returns a session token. Unknown email
// and wrong password produce the same answer so callers cannot probe which
// accounts exist.
func (s *AuthService) Login(req LoginRequest) (string, error) {
	user, err := s.Repo.GetByEmail(req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", httperr.Unauthenticated("invalid email or password")
		}
		return "", httperr.Internal(err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return "", httperr.Unauthenticated("invalid email or password")
	}

	token, err := IssueToken(s.Secret, user.Email, s.TokenTTL)
	if err != nil {
		return "", httperr.Internal(err)
	}
	return token, nil
}
