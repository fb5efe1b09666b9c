package handlers

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"strings"
	"time"

	"indix/db"
	"indix/mail"
	"indix/models"
	"indix/session"

	"golang.org/x/crypto/bcrypt"
)

const (
	otpPurposeVerifyEmail   = "verify_email"
	otpPurposeResetPassword = "reset_password"

	otpTTL            = 5 * time.Minute
	minPasswordLength = 8
)

type AuthHandler struct {
	Store    *db.Store
	Sessions *session.Manager
	Mailer   mail.Mailer
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates an unverified account and emails a verification code.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	email := normalizeEmail(req.Email)
	if !validEmail(email) || len(req.Password) < minPasswordLength {
		respondError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if _, err := h.Store.CreateUser(r.Context(), email, string(hash)); err != nil {
		respondError(w, http.StatusBadRequest, "User exists or DB error")
		return
	}

	if err := h.sendOTP(r, email, otpPurposeVerifyEmail); err != nil {
		log.Printf("register: sending verification code: %v", err)
	}

	w.WriteHeader(http.StatusCreated)
}

// Login checks credentials and issues a session token, set as an
// httpOnly cookie and echoed in the body for non-browser clients.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	user, err := h.Store.UserByEmail(r.Context(), normalizeEmail(req.Email))
	if err != nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, expiresAt, err := h.Sessions.Issue(user.ID)
	if err != nil {
		log.Printf("login: signing session token: %v", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	http.SetCookie(w, session.Cookie(token, expiresAt))
	respondJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, session.ClearCookie())
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetSession is the endpoint the client-side route guard polls on every
// navigation. A valid session returns the user and session expiry; any
// failure reads as "no session" so the guard fails closed.
func (h *AuthHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	token := session.TokenFromRequest(r)
	if token == "" {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	userID, expiresAt, err := h.Sessions.Verify(token)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	user, err := h.Store.UserByID(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"user":    user,
		"session": models.Session{UserID: user.ID, ExpiresAt: expiresAt},
	})
}

type verifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// Verify redeems an emailed code and marks the account verified.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		respondError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	email := normalizeEmail(req.Email)
	if err := h.Store.ConsumeOTP(r.Context(), email, req.Code, otpPurposeVerifyEmail, time.Now()); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid code")
		return
	}

	if err := h.Store.MarkEmailVerified(r.Context(), email); err != nil {
		log.Printf("verify: marking %s verified: %v", email, err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword emails a reset code. The response is the same whether or
// not the account exists, so the endpoint cannot be used to probe for
// registered addresses.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	email := normalizeEmail(req.Email)
	if !validEmail(email) {
		respondError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	if _, err := h.Store.UserByEmail(r.Context(), email); err == nil {
		if err := h.sendOTP(r, email, otpPurposeResetPassword); err != nil {
			log.Printf("forgot-password: sending reset code: %v", err)
		}
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type resetPasswordRequest struct {
	Email    string `json:"email"`
	Code     string `json:"code"`
	Password string `json:"password"`
}

// ResetPassword redeems a reset code and replaces the password hash.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		respondError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if len(req.Password) < minPasswordLength {
		respondError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	email := normalizeEmail(req.Email)
	if err := h.Store.ConsumeOTP(r.Context(), email, req.Code, otpPurposeResetPassword, time.Now()); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid code")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if err := h.Store.UpdatePassword(r.Context(), email, string(hash)); err != nil {
		log.Printf("reset-password: updating hash for %s: %v", email, err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *AuthHandler) sendOTP(r *http.Request, email, purpose string) error {
	code, err := generateOTP()
	if err != nil {
		return err
	}
	if err := h.Store.SaveOTP(r.Context(), email, code, purpose, time.Now().Add(otpTTL)); err != nil {
		return err
	}

	subject := "Your indix verification code"
	if purpose == otpPurposeResetPassword {
		subject = "Reset your indix password"
	}
	html := fmt.Sprintf(
		"<div><h1>Your verification code</h1><p>Use this code to continue:</p><div>%s</div>"+
			"<p>This code will expire in 5 minutes. If you didn't request this code, you can safely ignore this email.</p></div>",
		code)
	return h.Mailer.Send(r.Context(), email, subject, html)
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	at := strings.Index(email, "@")
	return at > 0 && at < len(email)-1 && !strings.Contains(email, " ")
}
