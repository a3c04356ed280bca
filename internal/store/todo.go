package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/homesphere/homesphere/internal/model"
)

// TodoStore applies the visibility rule on every read and write: a row is
// reachable when it is shared within the caller's family, or private and
// created by the caller. Rows outside that set behave as if absent.
type TodoStore struct {
	db *sql.DB
}

func NewTodoStore(db *sql.DB) *TodoStore {
	return &TodoStore{db: db}
}

const todoCols = `id, title, description, due_date, status, created_by, family_id, private, created_at, updated_at`

// visibleClause scopes a query to the caller. Bind userID for the private
// arm and familyID for the shared arm; familyID 0 matches nothing.
const todoVisible = `((family_id = ? AND private = 0) OR (created_by = ? AND private = 1))`

func scanTodo(scanner interface{ Scan(...any) error }) (*model.Todo, error) {
	var t model.Todo
	var dueDate sql.NullTime
	var familyID sql.NullInt64
	var private int

	err := scanner.Scan(
		&t.ID, &t.Title, &t.Description, &dueDate, &t.Status,
		&t.CreatedBy, &familyID, &private, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Private = private != 0
	if dueDate.Valid {
		t.DueDate = &dueDate.Time
	}
	if familyID.Valid {
		t.FamilyID = &familyID.Int64
	}
	return &t, nil
}

func (s *TodoStore) Create(title, description string, dueDate *time.Time, createdBy int64, familyID *int64, private bool) (*model.Todo, error) {
	var due sql.NullTime
	if dueDate != nil {
		due = sql.NullTime{Time: dueDate.UTC(), Valid: true}
	}
	var fam sql.NullInt64
	if familyID != nil {
		fam = sql.NullInt64{Int64: *familyID, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO todos (title, description, due_date, created_by, family_id, private)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		title, description, due, createdBy, fam, boolToInt(private),
	)
	if err != nil {
		return nil, fmt.Errorf("insert todo: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRow(`SELECT `+todoCols+` FROM todos WHERE id = ?`, id)
	return scanTodo(row)
}

// GetVisible returns the todo only if it is inside the caller's visible
// set; otherwise nil.
func (s *TodoStore) GetVisible(id, userID, familyID int64) (*model.Todo, error) {
	row := s.db.QueryRow(
		`SELECT `+todoCols+` FROM todos WHERE id = ? AND `+todoVisible,
		id, familyID, userID,
	)
	t, err := scanTodo(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get todo: %w", err)
	}
	return t, nil
}

// ListVisible returns the caller's private todos plus the shared todos of
// the caller's family.
func (s *TodoStore) ListVisible(userID, familyID int64) ([]model.Todo, error) {
	rows, err := s.db.Query(
		`SELECT `+todoCols+` FROM todos WHERE `+todoVisible+` ORDER BY created_at ASC, id ASC`,
		familyID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	defer rows.Close()

	var todos []model.Todo
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan todo: %w", err)
		}
		todos = append(todos, *t)
	}
	return todos, rows.Err()
}

// Update rewrites the payload fields of a visible todo and returns it, or
// nil when the id is outside the caller's visible set.
func (s *TodoStore) Update(id, userID, familyID int64, title, description string, dueDate *time.Time, status string) (*model.Todo, error) {
	var due sql.NullTime
	if dueDate != nil {
		due = sql.NullTime{Time: dueDate.UTC(), Valid: true}
	}

	result, err := s.db.Exec(
		`UPDATE todos SET title = ?, description = ?, due_date = ?, status = ?,
		 updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND `+todoVisible,
		title, description, due, status, id, familyID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("update todo: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	return s.GetVisible(id, userID, familyID)
}

// Delete removes a visible todo; false when the id is outside the caller's
// visible set.
func (s *TodoStore) Delete(id, userID, familyID int64) (bool, error) {
	result, err := s.db.Exec(
		`DELETE FROM todos WHERE id = ? AND `+todoVisible,
		id, familyID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("delete todo: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
