package main

import (
	"log"
	"net/http"

	"github.com/kinternationals/estimator/internal/store"
)

type loginViewData struct {
	baseViewData
	Email string
}

type homeViewData struct {
	baseViewData
	Stats store.Stats
}

func (s *server) handleHome(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		httpError(w, "load dashboard", err)
		return
	}
	s.renderTemplate(w, http.StatusOK, "home.html", homeViewData{baseViewData: s.base(r), Stats: stats})
}

func (s *server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	if isAuthenticated(r, s.auth) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.renderTemplate(w, http.StatusOK, "login.html", loginViewData{baseViewData: s.base(r)})
}

func (s *server) handleLoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	email := r.PostFormValue("email")
	user, valid, err := s.auth.validateCredentials(r.Context(), email, r.PostFormValue("password"))
	if err != nil {
		log.Printf("login: %v", err)
		http.Error(w, "authentication error", http.StatusInternalServerError)
		return
	}
	if !valid {
		data := loginViewData{baseViewData: s.base(r), Email: email}
		data.ErrorMessage = "Invalid email or password"
		s.renderTemplate(w, http.StatusUnauthorized, "login.html", data)
		return
	}

	s.auth.setSessionCookie(w, user.ID)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
