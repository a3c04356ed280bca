package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/homesphere/homesphere/internal/auth"
	"github.com/homesphere/homesphere/internal/email"
	"github.com/homesphere/homesphere/internal/store"
)

const (
	verificationTokenTTL = 24 * time.Hour
	passwordResetTTL     = time.Hour

	// Identical for unknown email and wrong password, so a response never
	// reveals whether an account exists.
	msgInvalidCredentials = "Invalid email or password"
	msgResetRequested     = "If an account exists with this email, you will receive a password reset link."
)

type AuthHandler struct {
	users       *store.UserStore
	families    *store.FamilyStore
	tokens      *auth.TokenService
	emailClient *email.Client
	logger      *slog.Logger
}

func NewAuthHandler(us *store.UserStore, fs *store.FamilyStore, ts *auth.TokenService, ec *email.Client, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		users:       us,
		families:    fs,
		tokens:      ts,
		emailClient: ec,
		logger:      logger,
	}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if err := auth.ValidateUsername(req.Username); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := auth.ValidateEmail(req.Email); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := auth.ValidatePassword(req.Password); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	emailAddr := auth.NormalizeEmail(req.Email)

	existing, err := h.users.GetByEmail(emailAddr)
	if err != nil {
		h.logger.Error("register email lookup", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if existing == nil {
		existing, err = h.users.GetByUsername(req.Username)
		if err != nil {
			h.logger.Error("register username lookup", "error", err)
			writeMessage(w, http.StatusInternalServerError, "Internal server error")
			return
		}
	}
	if existing != nil {
		writeMessage(w, http.StatusConflict, "Username or email is already taken")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("hash password", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	verificationToken, err := auth.GenerateToken()
	if err != nil {
		h.logger.Error("generate verification token", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	user, err := h.users.Create(req.Username, emailAddr, hash, verificationToken, time.Now().Add(verificationTokenTTL))
	if err != nil {
		h.logger.Error("create user", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	// Registration succeeds whether or not the verification mail goes out.
	go func() {
		if err := h.emailClient.SendVerification(user.Email, verificationToken); err != nil {
			h.logger.Error("send verification email", "email", user.Email, "error", err)
		}
	}()

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":               "Registration successful! Please check your email to verify your account.",
		"user_id":               user.ID,
		"username":              user.Username,
		"requires_verification": true,
	})
}

func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if len(token) != 64 {
		writeMessage(w, http.StatusBadRequest, "Invalid verification token format")
		return
	}

	user, err := h.users.GetByVerificationToken(token)
	if err != nil {
		h.logger.Error("verification token lookup", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if user == nil {
		writeMessage(w, http.StatusBadRequest, "Invalid verification token. Please request a new verification email.")
		return
	}

	if user.VerificationExpires != nil && user.VerificationExpires.Before(time.Now()) {
		newToken, err := auth.GenerateToken()
		if err != nil {
			h.logger.Error("regenerate verification token", "error", err)
			writeMessage(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if err := h.users.SetVerificationToken(user.ID, newToken, time.Now().Add(verificationTokenTTL)); err != nil {
			h.logger.Error("store new verification token", "error", err)
			writeMessage(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		go func() {
			if err := h.emailClient.SendVerification(user.Email, newToken); err != nil {
				h.logger.Error("resend verification email", "email", user.Email, "error", err)
			}
		}()
		writeMessage(w, http.StatusBadRequest, "Verification token expired. A new verification email has been sent.")
		return
	}

	if err := h.users.SetVerified(user.ID); err != nil {
		h.logger.Error("set verified", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeMessage(w, http.StatusOK, "Email verification successful! You can now log in.")
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, err := h.users.GetByEmail(auth.NormalizeEmail(req.Email))
	if err != nil {
		h.logger.Error("login lookup", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if user == nil {
		writeMessage(w, http.StatusUnauthorized, msgInvalidCredentials)
		return
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		writeMessage(w, http.StatusUnauthorized, msgInvalidCredentials)
		return
	}

	// Verification status is only revealed after the credentials matched.
	if !user.IsVerified {
		writeMessage(w, http.StatusForbidden, "Please verify your email before logging in")
		return
	}

	if err := h.users.UpdateLastLogin(user.ID); err != nil {
		h.logger.Error("update last login", "error", err)
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		h.logger.Error("issue token", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if membership, err := h.families.GetMembership(user.ID); err == nil && membership != nil {
		user.FamilyID = &membership.FamilyID
	}

	message := "Login successful"
	if h.tokens.Unlimited(user.Email) {
		message = "Development login successful"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": message,
		"token":   token,
		"user":    user,
	})
}

type resetRequestBody struct {
	Email string `json:"email"`
}

func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := auth.ValidateEmail(req.Email); err != nil {
		writeMessage(w, http.StatusBadRequest, "Valid email is required")
		return
	}

	user, err := h.users.GetByEmail(auth.NormalizeEmail(req.Email))
	if err != nil {
		h.logger.Error("reset request lookup", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	// The response is identical whether or not the account exists.
	if user != nil {
		resetToken, err := auth.GenerateToken()
		if err != nil {
			h.logger.Error("generate reset token", "error", err)
			writeMessage(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if err := h.users.SetResetToken(user.ID, resetToken, time.Now().Add(passwordResetTTL)); err != nil {
			h.logger.Error("store reset token", "error", err)
			writeMessage(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		go func() {
			if err := h.emailClient.SendPasswordReset(user.Email, resetToken); err != nil {
				h.logger.Error("send password reset email", "email", user.Email, "error", err)
			}
		}()
	}

	writeMessage(w, http.StatusOK, msgResetRequested)
}

type resetPasswordBody struct {
	Password string `json:"password"`
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")

	var req resetPasswordBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := auth.ValidatePassword(req.Password); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.GetByResetToken(token)
	if err != nil {
		h.logger.Error("reset token lookup", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if user == nil {
		writeMessage(w, http.StatusBadRequest, "Invalid or expired reset token")
		return
	}
	if user.PasswordResetExpires == nil || user.PasswordResetExpires.Before(time.Now()) {
		writeMessage(w, http.StatusBadRequest, "Password reset token has expired. Please request a new one.")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("hash new password", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	// ResetPassword also bumps the user's token cutoff, sweeping every
	// previously issued bearer token.
	if err := h.users.ResetPassword(user.ID, hash); err != nil {
		h.logger.Error("reset password", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeMessage(w, http.StatusOK, "Password has been reset successfully. Please log in with your new password.")
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	h.tokens.Blacklist(ac.Token)

	if err := h.users.UpdateLastLogout(ac.UserID); err != nil {
		h.logger.Error("update last logout", "error", err)
	}

	writeMessage(w, http.StatusOK, "Successfully logged out")
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	user, err := h.users.GetByID(ac.UserID)
	if err != nil || user == nil {
		h.logger.Error("me lookup", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if ac.FamilyID != 0 {
		user.FamilyID = &ac.FamilyID
	}

	writeJSON(w, http.StatusOK, user)
}

type profileRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UpdateProfile changes the username and/or password of the acting user.
// A password change here does not sweep issued tokens; only a reset does.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Username == "" && req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Nothing to update")
		return
	}

	if req.Username != "" {
		req.Username = strings.TrimSpace(req.Username)
		if err := auth.ValidateUsername(req.Username); err != nil {
			writeMessage(w, http.StatusBadRequest, err.Error())
			return
		}
		existing, err := h.users.GetByUsername(req.Username)
		if err != nil {
			h.logger.Error("profile username lookup", "error", err)
			writeMessage(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if existing != nil && existing.ID != ac.UserID {
			writeMessage(w, http.StatusConflict, "Username or email is already taken")
			return
		}
		if err := h.users.UpdateUsername(ac.UserID, req.Username); err != nil {
			h.logger.Error("update username", "error", err)
			writeMessage(w, http.StatusInternalServerError, "Internal server error")
			return
		}
	}

	if req.Password != "" {
		if err := auth.ValidatePassword(req.Password); err != nil {
			writeMessage(w, http.StatusBadRequest, err.Error())
			return
		}
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			h.logger.Error("hash profile password", "error", err)
			writeMessage(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if err := h.users.UpdatePassword(ac.UserID, hash); err != nil {
			h.logger.Error("update password", "error", err)
			writeMessage(w, http.StatusInternalServerError, "Internal server error")
			return
		}
	}

	writeMessage(w, http.StatusOK, "Profile updated successfully")
}
