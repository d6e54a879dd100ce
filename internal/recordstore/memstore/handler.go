package memstore

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hanpama/persongraph/internal/directory"
)

const maxRecordBytes = 1 << 20

// Routes mounts the persons collection on r.
func (s *Store) Routes(r chi.Router) {
	r.Get("/persons", s.handleList)
	r.Post("/persons", s.handleCreate)
	r.Get("/persons/{id}", s.handleGet)
	r.Put("/persons/{id}", s.handleReplace)
}

// Handler returns a standalone router serving the collection and /healthz.
func (s *Store) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	s.Routes(r)
	return r
}

func (s *Store) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.List())
}

func (s *Store) handleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := s.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Store) handleCreate(w http.ResponseWriter, r *http.Request) {
	rec, ok := decodeRecord(w, r)
	if !ok {
		return
	}
	created, err := s.Insert(rec)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Store) handleReplace(w http.ResponseWriter, r *http.Request) {
	rec, ok := decodeRecord(w, r)
	if !ok {
		return
	}
	updated, err := s.Replace(chi.URLParam(r, "id"), rec)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func decodeRecord(w http.ResponseWriter, r *http.Request) (directory.PersonRecord, bool) {
	var rec directory.PersonRecord
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRecordBytes))
	if err := dec.Decode(&rec); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid person: " + err.Error()})
		return rec, false
	}
	return rec, true
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrDuplicateID), errors.Is(err, ErrDuplicateName):
		status = http.StatusConflict
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
