package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"indix/db"
	"indix/mail"
)

type WaitlistHandler struct {
	Store  *db.Store
	Mailer mail.Mailer
}

type waitlistRequest struct {
	Email string `json:"email"`
}

// Join records a landing-page signup and sends a welcome email. Delivery
// is best effort: a mail failure is logged but never fails the signup.
func (h *WaitlistHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req waitlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	email := normalizeEmail(req.Email)
	if !validEmail(email) {
		respondError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	if err := h.Store.AddToWaitlist(r.Context(), email); err != nil {
		log.Printf("waitlist: storing %s: %v", email, err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if err := h.Mailer.Send(r.Context(), email, "Welcome to indix",
		"<p>Thank you for joining the waitlist!</p>"); err != nil {
		log.Printf("waitlist: welcome email to %s: %v", email, err)
	}

	respondJSON(w, http.StatusCreated, map[string]string{"status": "ok"})
}
