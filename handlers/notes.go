package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"indix/db"
	"indix/middleware"

	"github.com/go-chi/chi/v5"
)

type NoteHandler struct {
	Store *db.Store
}

// notePayload covers both create and update bodies. Content is a pointer
// purely to tell "missing" apart from "" during validation; Title stays a
// pointer all the way down because absence is meaningful (tri-state on
// update: absent = keep, "" = clear, value = set).
type notePayload struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

func decodeNote(r *http.Request) (notePayload, bool) {
	var body notePayload
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return notePayload{}, false
	}
	if body.Content == nil {
		return notePayload{}, false
	}
	return body, true
}

func userID(r *http.Request) (string, bool) {
	return middleware.UserID(r.Context())
}

// Create inserts a new note owned by the session user and returns its id.
// The owner always comes from the session, never from the body.
func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	body, ok := decodeNote(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	note, err := h.Store.CreateNote(r.Context(), uid, body.Title, *body.Content)
	if err != nil {
		log.Printf("create note: %v", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{"id": note.ID})
}

// Get returns the note scoped to the session user. A note that does not
// exist and a note owned by someone else produce the identical 404.
func (h *NoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	note, err := h.Store.GetNote(r.Context(), chi.URLParam(r, "id"), uid)
	if errors.Is(err, db.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Note not found")
		return
	}
	if err != nil {
		log.Printf("get note: %v", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"note": note})
}

// Update rewrites content (and title, when present) under the same
// ownership predicate and 404 merging as Get.
func (h *NoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	body, ok := decodeNote(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	note, err := h.Store.UpdateNote(r.Context(), chi.URLParam(r, "id"), uid, body.Title, *body.Content)
	if errors.Is(err, db.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Note not found")
		return
	}
	if err != nil {
		log.Printf("update note: %v", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"note": note})
}
