package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/homesphere/homesphere/internal/model"
)

var (
	// ErrAlreadyInFamily is returned when a user who already belongs to a
	// family tries to create or join another one.
	ErrAlreadyInFamily = errors.New("user already belongs to a family")
	// ErrLastAdmin is returned when a roster mutation would leave a
	// non-empty family without an admin.
	ErrLastAdmin = errors.New("cannot remove the last admin")
	// ErrNotMember is returned when the target of a roster mutation is not
	// in the expected membership state.
	ErrNotMember = errors.New("user is not a member in the required role")
)

// FamilyStore owns the roster and invitation list. Membership lives only in
// family_members (the user's family is derived by join, never duplicated),
// and every roster mutation is a single guarded statement so concurrent
// admin operations cannot race past the last-admin invariant.
type FamilyStore struct {
	db *sql.DB
}

func NewFamilyStore(db *sql.DB) *FamilyStore {
	return &FamilyStore{db: db}
}

const familyCols = `id, name, join_code, created_at, updated_at`
const memberCols = `id, family_id, user_id, role, created_at`
const invitationCols = `id, family_id, email, token, created_at`

func scanFamily(scanner interface{ Scan(...any) error }) (*model.Family, error) {
	var f model.Family
	err := scanner.Scan(&f.ID, &f.Name, &f.JoinCode, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func scanMember(scanner interface{ Scan(...any) error }) (*model.FamilyMember, error) {
	var m model.FamilyMember
	err := scanner.Scan(&m.ID, &m.FamilyID, &m.UserID, &m.Role, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func scanInvitation(scanner interface{ Scan(...any) error }) (*model.FamilyInvitation, error) {
	var inv model.FamilyInvitation
	err := scanner.Scan(&inv.ID, &inv.FamilyID, &inv.Email, &inv.Token, &inv.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Create inserts the family and its sole admin in one transaction. The
// creator must not belong to a family already.
func (s *FamilyStore) Create(name, joinCode string, creatorID int64) (*model.Family, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`INSERT INTO families (name, join_code) VALUES (?, ?)`, name, joinCode)
	if err != nil {
		return nil, fmt.Errorf("insert family: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if _, err := tx.Exec(
		`INSERT INTO family_members (family_id, user_id, role) VALUES (?, ?, ?)`,
		id, creatorID, model.RoleAdmin,
	); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyInFamily
		}
		return nil, fmt.Errorf("insert creator membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return s.GetByID(id)
}

func (s *FamilyStore) GetByID(id int64) (*model.Family, error) {
	row := s.db.QueryRow(`SELECT `+familyCols+` FROM families WHERE id = ?`, id)
	f, err := scanFamily(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get family: %w", err)
	}
	return f, nil
}

func (s *FamilyStore) GetByJoinCode(joinCode string) (*model.Family, error) {
	row := s.db.QueryRow(`SELECT `+familyCols+` FROM families WHERE join_code = ?`, joinCode)
	f, err := scanFamily(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get family by join code: %w", err)
	}
	return f, nil
}

// GetMembership returns the user's membership row, or nil if the user has
// no family.
func (s *FamilyStore) GetMembership(userID int64) (*model.FamilyMember, error) {
	row := s.db.QueryRow(`SELECT `+memberCols+` FROM family_members WHERE user_id = ?`, userID)
	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get membership: %w", err)
	}
	return m, nil
}

func (s *FamilyStore) GetMember(familyID, userID int64) (*model.FamilyMember, error) {
	row := s.db.QueryRow(
		`SELECT `+memberCols+` FROM family_members WHERE family_id = ? AND user_id = ?`,
		familyID, userID,
	)
	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

func (s *FamilyStore) ListMembers(familyID int64) ([]model.FamilyMember, error) {
	rows, err := s.db.Query(
		`SELECT `+memberCols+` FROM family_members WHERE family_id = ? ORDER BY created_at ASC, id ASC`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []model.FamilyMember
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

// AddMember adds a user in the given role. ErrAlreadyInFamily if the user
// belongs to any family (the roster carries a global unique on user_id).
func (s *FamilyStore) AddMember(familyID, userID int64, role string) (*model.FamilyMember, error) {
	_, err := s.db.Exec(
		`INSERT INTO family_members (family_id, user_id, role) VALUES (?, ?, ?)`,
		familyID, userID, role,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyInFamily
		}
		return nil, fmt.Errorf("add member: %w", err)
	}
	return s.GetMember(familyID, userID)
}

// Promote raises a member to admin. The role guard lives in the statement,
// so a concurrent promote of the same user is harmless.
func (s *FamilyStore) Promote(familyID, userID int64) error {
	result, err := s.db.Exec(
		`UPDATE family_members SET role = ? WHERE family_id = ? AND user_id = ? AND role = ?`,
		model.RoleAdmin, familyID, userID, model.RoleMember,
	)
	if err != nil {
		return fmt.Errorf("promote member: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotMember
	}
	return nil
}

// Demote lowers an admin to member. The admin-count subquery keeps the
// family from losing its last admin even under concurrent demotions.
func (s *FamilyStore) Demote(familyID, userID int64) error {
	result, err := s.db.Exec(
		`UPDATE family_members SET role = ?
		 WHERE family_id = ? AND user_id = ? AND role = ?
		   AND (SELECT COUNT(*) FROM family_members WHERE family_id = ? AND role = ?) > 1`,
		model.RoleMember, familyID, userID, model.RoleAdmin, familyID, model.RoleAdmin,
	)
	if err != nil {
		return fmt.Errorf("demote member: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		m, err := s.GetMember(familyID, userID)
		if err != nil {
			return err
		}
		if m != nil && m.Role == model.RoleAdmin {
			return ErrLastAdmin
		}
		return ErrNotMember
	}
	return nil
}

// RemoveMember deletes a roster entry. Removing an admin is rejected when
// no other admin remains.
func (s *FamilyStore) RemoveMember(familyID, userID int64) error {
	result, err := s.db.Exec(
		`DELETE FROM family_members
		 WHERE family_id = ? AND user_id = ?
		   AND (role = ?
		        OR (SELECT COUNT(*) FROM family_members WHERE family_id = ? AND role = ?) > 1)`,
		familyID, userID, model.RoleMember, familyID, model.RoleAdmin,
	)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		m, err := s.GetMember(familyID, userID)
		if err != nil {
			return err
		}
		if m != nil && m.Role == model.RoleAdmin {
			return ErrLastAdmin
		}
		return ErrNotMember
	}
	return nil
}

func (s *FamilyStore) AddInvitation(familyID int64, email, token string) (*model.FamilyInvitation, error) {
	result, err := s.db.Exec(
		`INSERT INTO family_invitations (family_id, email, token) VALUES (?, ?, ?)`,
		familyID, email, token,
	)
	if err != nil {
		return nil, fmt.Errorf("add invitation: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRow(`SELECT `+invitationCols+` FROM family_invitations WHERE id = ?`, id)
	return scanInvitation(row)
}

func (s *FamilyStore) GetInvitationByToken(token string) (*model.FamilyInvitation, error) {
	row := s.db.QueryRow(`SELECT `+invitationCols+` FROM family_invitations WHERE token = ?`, token)
	inv, err := scanInvitation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get invitation: %w", err)
	}
	return inv, nil
}

func (s *FamilyStore) ListInvitations(familyID int64) ([]model.FamilyInvitation, error) {
	rows, err := s.db.Query(
		`SELECT `+invitationCols+` FROM family_invitations WHERE family_id = ? ORDER BY created_at ASC`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	defer rows.Close()

	var invitations []model.FamilyInvitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invitation: %w", err)
		}
		invitations = append(invitations, *inv)
	}
	return invitations, rows.Err()
}

func (s *FamilyStore) DeleteInvitation(id int64) error {
	_, err := s.db.Exec(`DELETE FROM family_invitations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete invitation: %w", err)
	}
	return nil
}
