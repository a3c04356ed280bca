package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/homesphere/homesphere/internal/auth"
	"github.com/homesphere/homesphere/internal/model"
	"github.com/homesphere/homesphere/internal/store"
)

type ShoppingHandler struct {
	items  *store.ShoppingStore
	logger *slog.Logger
}

func NewShoppingHandler(ss *store.ShoppingStore, logger *slog.Logger) *ShoppingHandler {
	return &ShoppingHandler{items: ss, logger: logger}
}

type shoppingItemRequest struct {
	ProductName     string `json:"product_name"`
	Quantity        int    `json:"quantity"`
	Unit            string `json:"unit"`
	Notes           string `json:"notes"`
	ShareWithFamily bool   `json:"share_with_family"`
}

func (h *ShoppingHandler) Create(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	var req shoppingItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	req.ProductName = strings.TrimSpace(req.ProductName)
	if req.ProductName == "" {
		writeMessage(w, http.StatusBadRequest, "Product name is required")
		return
	}
	if req.Quantity <= 0 {
		req.Quantity = 1
	}
	if req.Unit == "" {
		req.Unit = "amount"
	}

	var familyID *int64
	private := true
	if req.ShareWithFamily {
		if ac.FamilyID == 0 {
			writeMessage(w, http.StatusBadRequest, "You do not belong to a family")
			return
		}
		familyID = &ac.FamilyID
		private = false
	}

	item, err := h.items.Create(req.ProductName, req.Quantity, req.Unit, req.Notes, ac.UserID, familyID, private)
	if err != nil {
		h.logger.Error("create shopping item", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, item)
}

func (h *ShoppingHandler) List(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	items, err := h.items.ListVisible(ac.UserID, ac.FamilyID)
	if err != nil {
		h.logger.Error("list shopping items", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if items == nil {
		items = []model.ShoppingItem{}
	}

	writeJSON(w, http.StatusOK, items)
}

func (h *ShoppingHandler) Update(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	id, err := parseIDParam(r, "id")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid item ID")
		return
	}

	existing, err := h.items.GetVisible(id, ac.UserID, ac.FamilyID)
	if err != nil {
		h.logger.Error("get shopping item for update", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if existing == nil {
		writeMessage(w, http.StatusNotFound, "Shopping item not found")
		return
	}

	// Absent fields keep their current values.
	req := shoppingItemRequest{
		ProductName: existing.ProductName,
		Quantity:    existing.Quantity,
		Unit:        existing.Unit,
		Notes:       existing.Notes,
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	req.ProductName = strings.TrimSpace(req.ProductName)
	if req.ProductName == "" {
		writeMessage(w, http.StatusBadRequest, "Product name is required")
		return
	}
	if req.Quantity <= 0 {
		writeMessage(w, http.StatusBadRequest, "Quantity must be positive")
		return
	}

	item, err := h.items.Update(id, ac.UserID, ac.FamilyID, req.ProductName, req.Quantity, req.Unit, req.Notes)
	if err != nil {
		h.logger.Error("update shopping item", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if item == nil {
		writeMessage(w, http.StatusNotFound, "Shopping item not found")
		return
	}

	writeJSON(w, http.StatusOK, item)
}

func (h *ShoppingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	id, err := parseIDParam(r, "id")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid item ID")
		return
	}

	deleted, err := h.items.Delete(id, ac.UserID, ac.FamilyID)
	if err != nil {
		h.logger.Error("delete shopping item", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if !deleted {
		writeMessage(w, http.StatusNotFound, "Shopping item not found")
		return
	}

	writeMessage(w, http.StatusOK, "Shopping item deleted")
}

func (h *ShoppingHandler) ToggleChecked(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	id, err := parseIDParam(r, "id")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid item ID")
		return
	}

	item, err := h.items.ToggleChecked(id, ac.UserID, ac.FamilyID)
	if err != nil {
		h.logger.Error("toggle shopping item", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if item == nil {
		writeMessage(w, http.StatusNotFound, "Shopping item not found")
		return
	}

	writeJSON(w, http.StatusOK, item)
}

// ClearChecked removes every checked item the caller can see and reports how
// many were removed.
func (h *ShoppingHandler) ClearChecked(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	cleared, err := h.items.ClearChecked(ac.UserID, ac.FamilyID)
	if err != nil {
		h.logger.Error("clear checked items", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Checked items cleared",
		"cleared": cleared,
	})
}
