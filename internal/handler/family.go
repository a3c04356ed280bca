package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/homesphere/homesphere/internal/auth"
	"github.com/homesphere/homesphere/internal/email"
	"github.com/homesphere/homesphere/internal/model"
	"github.com/homesphere/homesphere/internal/store"
)

type FamilyHandler struct {
	families    *store.FamilyStore
	emailClient *email.Client
	logger      *slog.Logger
}

func NewFamilyHandler(fs *store.FamilyStore, ec *email.Client, logger *slog.Logger) *FamilyHandler {
	return &FamilyHandler{
		families:    fs,
		emailClient: ec,
		logger:      logger,
	}
}

// requireFamilyAdmin resolves the acting user's auth context and verifies an
// admin role in their family. Writes the error response itself on failure.
func requireFamilyAdmin(w http.ResponseWriter, r *http.Request) (auth.AuthContext, bool) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Not authorized")
		return auth.AuthContext{}, false
	}
	if ac.FamilyID == 0 {
		writeMessage(w, http.StatusBadRequest, "You are not part of a family")
		return auth.AuthContext{}, false
	}
	if ac.FamilyRole != model.RoleAdmin {
		writeMessage(w, http.StatusForbidden, "Only family admins can perform this action")
		return auth.AuthContext{}, false
	}
	return ac, true
}

type createFamilyRequest struct {
	Name string `json:"name"`
}

func (h *FamilyHandler) Create(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Not authorized")
		return
	}
	if ac.FamilyID != 0 {
		writeMessage(w, http.StatusBadRequest, "You already belong to a family")
		return
	}

	var req createFamilyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeMessage(w, http.StatusBadRequest, "Family name is required")
		return
	}

	joinCode, err := auth.GenerateJoinCode()
	if err != nil {
		h.logger.Error("generate join code", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	family, err := h.families.Create(req.Name, joinCode, ac.UserID)
	if err != nil {
		if errors.Is(err, store.ErrAlreadyInFamily) {
			writeMessage(w, http.StatusBadRequest, "You already belong to a family")
			return
		}
		h.logger.Error("create family", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Family created successfully",
		"family":  family,
	})
}

type joinFamilyRequest struct {
	JoinCode string `json:"join_code"`
}

func (h *FamilyHandler) Join(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Not authorized")
		return
	}
	if ac.FamilyID != 0 {
		writeMessage(w, http.StatusBadRequest, "You already belong to a family")
		return
	}

	var req joinFamilyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	req.JoinCode = strings.TrimSpace(req.JoinCode)
	if req.JoinCode == "" {
		writeMessage(w, http.StatusBadRequest, "Join code is required")
		return
	}

	family, err := h.families.GetByJoinCode(req.JoinCode)
	if err != nil {
		h.logger.Error("join code lookup", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if family == nil {
		writeMessage(w, http.StatusNotFound, "Family not found with provided join code")
		return
	}

	if _, err := h.families.AddMember(family.ID, ac.UserID, model.RoleMember); err != nil {
		if errors.Is(err, store.ErrAlreadyInFamily) {
			writeMessage(w, http.StatusBadRequest, "You already belong to a family")
			return
		}
		h.logger.Error("join family", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Joined family successfully",
		"family":  family,
	})
}

// Get returns the acting user's family along with its roster and any
// outstanding invitations.
func (h *FamilyHandler) Get(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Not authorized")
		return
	}
	if ac.FamilyID == 0 {
		writeMessage(w, http.StatusNotFound, "You are not part of a family")
		return
	}

	family, err := h.families.GetByID(ac.FamilyID)
	if err != nil || family == nil {
		h.logger.Error("get family", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	members, err := h.families.ListMembers(ac.FamilyID)
	if err != nil {
		h.logger.Error("list members", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	invitations, err := h.families.ListInvitations(ac.FamilyID)
	if err != nil {
		h.logger.Error("list invitations", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"family":      family,
		"members":     members,
		"invitations": invitations,
	})
}

func (h *FamilyHandler) Members(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	familyID, err := parseIDParam(r, "id")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid family ID")
		return
	}
	if ac.FamilyID != familyID {
		writeMessage(w, http.StatusForbidden, "You are not a member of this family")
		return
	}

	members, err := h.families.ListMembers(familyID)
	if err != nil {
		h.logger.Error("list members", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if members == nil {
		members = []model.FamilyMember{}
	}

	writeJSON(w, http.StatusOK, members)
}

type inviteRequest struct {
	Email string `json:"email"`
}

func (h *FamilyHandler) Invite(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Not authorized")
		return
	}
	if ac.FamilyID == 0 {
		writeMessage(w, http.StatusBadRequest, "You are not part of a family")
		return
	}

	var req inviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := auth.ValidateEmail(req.Email); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	family, err := h.families.GetByID(ac.FamilyID)
	if err != nil || family == nil {
		h.logger.Error("invite family lookup", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	token, err := auth.GenerateToken()
	if err != nil {
		h.logger.Error("generate invitation token", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	invitation, err := h.families.AddInvitation(ac.FamilyID, auth.NormalizeEmail(req.Email), token)
	if err != nil {
		h.logger.Error("add invitation", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	go func() {
		if err := h.emailClient.SendFamilyInvitation(invitation.Email, token, family.Name); err != nil {
			h.logger.Error("send invitation email", "email", invitation.Email, "error", err)
		}
	}()

	writeJSON(w, http.StatusOK, map[string]any{
		"message":    "Invitation sent",
		"invitation": invitation,
	})
}

type acceptInvitationRequest struct {
	Token string `json:"token"`
}

func (h *FamilyHandler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Not authorized")
		return
	}
	if ac.FamilyID != 0 {
		writeMessage(w, http.StatusBadRequest, "You already belong to a family")
		return
	}

	var req acceptInvitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	invitation, err := h.families.GetInvitationByToken(req.Token)
	if err != nil {
		h.logger.Error("invitation lookup", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if invitation == nil {
		writeMessage(w, http.StatusBadRequest, "Invalid invitation token")
		return
	}

	if _, err := h.families.AddMember(invitation.FamilyID, ac.UserID, model.RoleMember); err != nil {
		if errors.Is(err, store.ErrAlreadyInFamily) {
			writeMessage(w, http.StatusBadRequest, "You already belong to a family")
			return
		}
		h.logger.Error("accept invitation", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if err := h.families.DeleteInvitation(invitation.ID); err != nil {
		h.logger.Error("delete invitation", "error", err)
	}

	family, err := h.families.GetByID(invitation.FamilyID)
	if err != nil {
		h.logger.Error("get family after accept", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Joined family successfully",
		"family":  family,
	})
}

type memberTargetRequest struct {
	UserID int64 `json:"user_id"`
}

func (h *FamilyHandler) Promote(w http.ResponseWriter, r *http.Request) {
	ac, ok := requireFamilyAdmin(w, r)
	if !ok {
		return
	}

	var req memberTargetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := h.families.Promote(ac.FamilyID, req.UserID); err != nil {
		if errors.Is(err, store.ErrNotMember) {
			writeMessage(w, http.StatusBadRequest, "User is not a member of your family")
			return
		}
		h.logger.Error("promote member", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeMessage(w, http.StatusOK, "Member promoted to admin")
}

func (h *FamilyHandler) Demote(w http.ResponseWriter, r *http.Request) {
	ac, ok := requireFamilyAdmin(w, r)
	if !ok {
		return
	}

	var req memberTargetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := h.families.Demote(ac.FamilyID, req.UserID); err != nil {
		switch {
		case errors.Is(err, store.ErrLastAdmin):
			writeMessage(w, http.StatusBadRequest, "Cannot demote the last admin")
		case errors.Is(err, store.ErrNotMember):
			writeMessage(w, http.StatusBadRequest, "User is not an admin of your family")
		default:
			h.logger.Error("demote member", "error", err)
			writeMessage(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	writeMessage(w, http.StatusOK, "Admin demoted to member")
}

func (h *FamilyHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	ac, ok := requireFamilyAdmin(w, r)
	if !ok {
		return
	}

	userID, err := parseIDParam(r, "userID")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	if err := h.families.RemoveMember(ac.FamilyID, userID); err != nil {
		switch {
		case errors.Is(err, store.ErrLastAdmin):
			writeMessage(w, http.StatusBadRequest, "Cannot remove the last admin")
		case errors.Is(err, store.ErrNotMember):
			writeMessage(w, http.StatusNotFound, "Member not found")
		default:
			h.logger.Error("remove member", "error", err)
			writeMessage(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	writeMessage(w, http.StatusOK, "Member removed")
}
