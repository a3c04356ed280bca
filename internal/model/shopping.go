package model

import "time"

// ShoppingItem shares the visibility envelope with Todo.
type ShoppingItem struct {
	ID          int64     `json:"id"`
	ProductName string    `json:"product_name"`
	Quantity    int       `json:"quantity"`
	Unit        string    `json:"unit"`
	Notes       string    `json:"notes"`
	IsChecked   bool      `json:"is_checked"`
	CreatedBy   int64     `json:"created_by"`
	FamilyID    *int64    `json:"family_id,omitempty"`
	Private     bool      `json:"private"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
