package api

import (
	"net/http"

	"github.com/andrebq/notebox/notebook"
)

type (
	notesResponse struct {
		Notes []notebook.Note `json:"notes"`
	}

	addNoteRequest struct {
		Content string `json:"content"`
	}

	addNoteResponse struct {
		Message string        `json:"message"`
		Note    notebook.Note `json:"note"`
	}
)

func listNotes(notes notebook.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, _ := PrincipalFrom(r.Context())
		list, err := notes.ListNotes(r.Context(), p.Subject)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if list == nil {
			list = []notebook.Note{}
		}
		writeJSON(w, http.StatusOK, notesResponse{Notes: list})
	}
}

func addNote(notes notebook.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body addNoteRequest
		if err := readJSON(w, r, &body); err != nil {
			writeError(w, r, err)
			return
		}
		p, _ := PrincipalFrom(r.Context())
		n, err := notes.AppendNote(r.Context(), p.Subject, body.Content)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, addNoteResponse{Message: "Note added successfully", Note: n})
	}
}
