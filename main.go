package main

import (
	"log"
	"net/http"
	"os"

	"indix/db"
	"indix/handlers"
	"indix/mail"
	appmw "indix/middleware"
	"indix/session"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func newRouter(store *db.Store, sessions *session.Manager, mailer mail.Mailer) *chi.Mux {
	notes := &handlers.NoteHandler{Store: store}
	auth := &handlers.AuthHandler{Store: store, Sessions: sessions, Mailer: mailer}
	waitlist := &handlers.WaitlistHandler{Store: store, Mailer: mailer}

	r := chi.NewRouter()

	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Post("/api/register", auth.Register)
	r.Post("/api/login", auth.Login)
	r.Post("/api/logout", auth.Logout)
	r.Get("/api/auth/get-session", auth.GetSession)
	r.Post("/api/verify", auth.Verify)
	r.Post("/api/forgot-password", auth.ForgotPassword)
	r.Post("/api/reset-password", auth.ResetPassword)
	r.Post("/api/waitlist", waitlist.Join)

	r.Group(func(r chi.Router) {
		r.Use(appmw.RequireAuth(sessions))
		r.Post("/api/notes", notes.Create)
		r.Get("/api/notes/{id}", notes.Get)
		r.Patch("/api/notes/{id}", notes.Update)
	})

	return r
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: no .env file found, using environment as-is")
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	store, err := db.Connect("mysql", os.Getenv("DSN"))
	if err != nil {
		log.Fatal("DB connection error:", err)
	}
	defer store.Close()

	sessions := session.NewManager([]byte(secret), session.DefaultTTL)

	var mailer mail.Mailer = mail.LogMailer{}
	if key := os.Getenv("RESEND_API_KEY"); key != "" {
		mailer = mail.NewResend(key, "noreply@indix.app")
	}

	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":3002"
	}

	r := newRouter(store, sessions, mailer)

	log.Println("Server running on", addr)
	log.Fatal(http.ListenAndServe(addr, r))
}
