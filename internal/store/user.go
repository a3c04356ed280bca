package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/homesphere/homesphere/internal/model"
)

// UserStore is the credential store: user identity, hashed secret, and the
// verification/reset token fields.
type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

const userCols = `id, username, email, password_hash, role, is_verified,
	verification_token, verification_expires,
	password_reset_token, password_reset_expires,
	token_invalid_before, last_login, last_logout, created_at, updated_at`

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var verified int
	var verTok, resetTok sql.NullString
	var verExp, resetExp, invalidBefore, lastLogin, lastLogout sql.NullTime

	err := scanner.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &verified,
		&verTok, &verExp, &resetTok, &resetExp,
		&invalidBefore, &lastLogin, &lastLogout, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	u.IsVerified = verified != 0
	if verTok.Valid {
		u.VerificationToken = &verTok.String
	}
	if verExp.Valid {
		u.VerificationExpires = &verExp.Time
	}
	if resetTok.Valid {
		u.PasswordResetToken = &resetTok.String
	}
	if resetExp.Valid {
		u.PasswordResetExpires = &resetExp.Time
	}
	if invalidBefore.Valid {
		u.TokenInvalidBefore = &invalidBefore.Time
	}
	if lastLogin.Valid {
		u.LastLogin = &lastLogin.Time
	}
	if lastLogout.Valid {
		u.LastLogout = &lastLogout.Time
	}
	return &u, nil
}

// Create inserts an unverified user. Email must already be normalized.
func (s *UserStore) Create(username, email, passwordHash, verificationToken string, verificationExpires time.Time) (*model.User, error) {
	result, err := s.db.Exec(
		`INSERT INTO users (username, email, password_hash, verification_token, verification_expires)
		 VALUES (?, ?, ?, ?, ?)`,
		username, email, passwordHash, verificationToken, verificationExpires.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) GetByID(id int64) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByEmail(email string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// GetByUsername matches case-insensitively.
func (s *UserStore) GetByUsername(username string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE LOWER(username) = LOWER(?)`, username)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByVerificationToken(token string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE verification_token = ?`, token)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by verification token: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByResetToken(token string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE password_reset_token = ?`, token)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by reset token: %w", err)
	}
	return u, nil
}

// SetVerified marks the user verified and clears the verification token
// fields.
func (s *UserStore) SetVerified(id int64) error {
	_, err := s.db.Exec(
		`UPDATE users SET is_verified = 1, verification_token = NULL,
		 verification_expires = NULL, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("set verified: %w", err)
	}
	return nil
}

func (s *UserStore) SetVerificationToken(id int64, token string, expires time.Time) error {
	_, err := s.db.Exec(
		`UPDATE users SET verification_token = ?, verification_expires = ?,
		 updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		token, expires.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("set verification token: %w", err)
	}
	return nil
}

func (s *UserStore) SetResetToken(id int64, token string, expires time.Time) error {
	_, err := s.db.Exec(
		`UPDATE users SET password_reset_token = ?, password_reset_expires = ?,
		 updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		token, expires.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("set reset token: %w", err)
	}
	return nil
}

// ResetPassword stores the new hash, clears the reset token fields, and
// bumps token_invalid_before so every previously issued bearer token stops
// verifying against this account.
func (s *UserStore) ResetPassword(id int64, passwordHash string) error {
	_, err := s.db.Exec(
		`UPDATE users SET password_hash = ?, password_reset_token = NULL,
		 password_reset_expires = NULL, token_invalid_before = ?,
		 updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		passwordHash, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	return nil
}

// UpdatePassword changes the hash without sweeping issued tokens (profile
// edit by an already-authenticated user).
func (s *UserStore) UpdatePassword(id int64, passwordHash string) error {
	_, err := s.db.Exec(
		`UPDATE users SET password_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func (s *UserStore) UpdateUsername(id int64, username string) error {
	_, err := s.db.Exec(
		`UPDATE users SET username = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		username, id,
	)
	if err != nil {
		return fmt.Errorf("update username: %w", err)
	}
	return nil
}

func (s *UserStore) UpdateLastLogin(id int64) error {
	_, err := s.db.Exec(`UPDATE users SET last_login = ? WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

func (s *UserStore) UpdateLastLogout(id int64) error {
	_, err := s.db.Exec(`UPDATE users SET last_logout = ? WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update last logout: %w", err)
	}
	return nil
}
