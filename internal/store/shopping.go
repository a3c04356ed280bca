package store

import (
	"database/sql"
	"fmt"

	"github.com/homesphere/homesphere/internal/model"
)

// ShoppingStore mirrors TodoStore's visibility scoping for shopping items.
type ShoppingStore struct {
	db *sql.DB
}

func NewShoppingStore(db *sql.DB) *ShoppingStore {
	return &ShoppingStore{db: db}
}

const shoppingCols = `id, product_name, quantity, unit, notes, is_checked, created_by, family_id, private, created_at, updated_at`

const shoppingVisible = `((family_id = ? AND private = 0) OR (created_by = ? AND private = 1))`

func scanShoppingItem(scanner interface{ Scan(...any) error }) (*model.ShoppingItem, error) {
	var item model.ShoppingItem
	var familyID sql.NullInt64
	var checked, private int

	err := scanner.Scan(
		&item.ID, &item.ProductName, &item.Quantity, &item.Unit, &item.Notes,
		&checked, &item.CreatedBy, &familyID, &private, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.IsChecked = checked != 0
	item.Private = private != 0
	if familyID.Valid {
		item.FamilyID = &familyID.Int64
	}
	return &item, nil
}

func (s *ShoppingStore) Create(productName string, quantity int, unit, notes string, createdBy int64, familyID *int64, private bool) (*model.ShoppingItem, error) {
	var fam sql.NullInt64
	if familyID != nil {
		fam = sql.NullInt64{Int64: *familyID, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO shopping_items (product_name, quantity, unit, notes, created_by, family_id, private)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		productName, quantity, unit, notes, createdBy, fam, boolToInt(private),
	)
	if err != nil {
		return nil, fmt.Errorf("insert shopping item: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRow(`SELECT `+shoppingCols+` FROM shopping_items WHERE id = ?`, id)
	return scanShoppingItem(row)
}

func (s *ShoppingStore) GetVisible(id, userID, familyID int64) (*model.ShoppingItem, error) {
	row := s.db.QueryRow(
		`SELECT `+shoppingCols+` FROM shopping_items WHERE id = ? AND `+shoppingVisible,
		id, familyID, userID,
	)
	item, err := scanShoppingItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get shopping item: %w", err)
	}
	return item, nil
}

func (s *ShoppingStore) ListVisible(userID, familyID int64) ([]model.ShoppingItem, error) {
	rows, err := s.db.Query(
		`SELECT `+shoppingCols+` FROM shopping_items WHERE `+shoppingVisible+
			` ORDER BY is_checked ASC, created_at ASC, id ASC`,
		familyID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list shopping items: %w", err)
	}
	defer rows.Close()

	var items []model.ShoppingItem
	for rows.Next() {
		item, err := scanShoppingItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shopping item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (s *ShoppingStore) Update(id, userID, familyID int64, productName string, quantity int, unit, notes string) (*model.ShoppingItem, error) {
	result, err := s.db.Exec(
		`UPDATE shopping_items SET product_name = ?, quantity = ?, unit = ?, notes = ?,
		 updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND `+shoppingVisible,
		productName, quantity, unit, notes, id, familyID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("update shopping item: %w", err)
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

func (s *ShoppingStore) Delete(id, userID, familyID int64) (bool, error) {
	result, err := s.db.Exec(
		`DELETE FROM shopping_items WHERE id = ? AND `+shoppingVisible,
		id, familyID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("delete shopping item: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// ToggleChecked flips is_checked on a visible item and returns it, or nil
// when the id is outside the caller's visible set.
func (s *ShoppingStore) ToggleChecked(id, userID, familyID int64) (*model.ShoppingItem, error) {
	result, err := s.db.Exec(
		`UPDATE shopping_items SET is_checked = 1 - is_checked,
		 updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND `+shoppingVisible,
		id, familyID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("toggle checked: %w", err)
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

// ClearChecked deletes every checked item in the caller's visible set and
// returns the number removed.
func (s *ShoppingStore) ClearChecked(userID, familyID int64) (int64, error) {
	result, err := s.db.Exec(
		`DELETE FROM shopping_items WHERE is_checked = 1 AND `+shoppingVisible,
		familyID, userID,
	)
	if err != nil {
		return 0, fmt.Errorf("clear checked: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
