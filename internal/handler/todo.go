package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/homesphere/homesphere/internal/auth"
	"github.com/homesphere/homesphere/internal/model"
	"github.com/homesphere/homesphere/internal/store"
)

type TodoHandler struct {
	todos  *store.TodoStore
	logger *slog.Logger
}

func NewTodoHandler(ts *store.TodoStore, logger *slog.Logger) *TodoHandler {
	return &TodoHandler{todos: ts, logger: logger}
}

type todoRequest struct {
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	DueDate         *time.Time `json:"due_date"`
	Status          string     `json:"status"`
	ShareWithFamily bool       `json:"share_with_family"`
}

func (h *TodoHandler) Create(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	var req todoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeMessage(w, http.StatusBadRequest, "Title is required")
		return
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

	todo, err := h.todos.Create(req.Title, req.Description, req.DueDate, ac.UserID, familyID, private)
	if err != nil {
		h.logger.Error("create todo", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, todo)
}

func (h *TodoHandler) List(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	todos, err := h.todos.ListVisible(ac.UserID, ac.FamilyID)
	if err != nil {
		h.logger.Error("list todos", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if todos == nil {
		todos = []model.Todo{}
	}

	writeJSON(w, http.StatusOK, todos)
}

func (h *TodoHandler) Get(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	id, err := parseIDParam(r, "id")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid todo ID")
		return
	}

	todo, err := h.todos.GetVisible(id, ac.UserID, ac.FamilyID)
	if err != nil {
		h.logger.Error("get todo", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if todo == nil {
		writeMessage(w, http.StatusNotFound, "Todo not found")
		return
	}

	writeJSON(w, http.StatusOK, todo)
}

func (h *TodoHandler) Update(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	id, err := parseIDParam(r, "id")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid todo ID")
		return
	}

	existing, err := h.todos.GetVisible(id, ac.UserID, ac.FamilyID)
	if err != nil {
		h.logger.Error("get todo for update", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if existing == nil {
		writeMessage(w, http.StatusNotFound, "Todo not found")
		return
	}

	// Absent fields keep their current values.
	req := todoRequest{
		Title:       existing.Title,
		Description: existing.Description,
		DueDate:     existing.DueDate,
		Status:      existing.Status,
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeMessage(w, http.StatusBadRequest, "Title is required")
		return
	}
	if req.Status != model.TodoStatusPending && req.Status != model.TodoStatusCompleted {
		writeMessage(w, http.StatusBadRequest, "Status must be pending or completed")
		return
	}

	todo, err := h.todos.Update(id, ac.UserID, ac.FamilyID, req.Title, req.Description, req.DueDate, req.Status)
	if err != nil {
		h.logger.Error("update todo", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if todo == nil {
		writeMessage(w, http.StatusNotFound, "Todo not found")
		return
	}

	writeJSON(w, http.StatusOK, todo)
}

func (h *TodoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	id, err := parseIDParam(r, "id")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid todo ID")
		return
	}

	deleted, err := h.todos.Delete(id, ac.UserID, ac.FamilyID)
	if err != nil {
		h.logger.Error("delete todo", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if !deleted {
		writeMessage(w, http.StatusNotFound, "Todo not found")
		return
	}

	writeMessage(w, http.StatusOK, "Todo deleted")
}
