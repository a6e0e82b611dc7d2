package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/intermernet/matchday/internal/events"
	"github.com/intermernet/matchday/internal/validate"
)

// handleListEvents serves the dashboard: one page of the caller's events
// after filtering, plus the sport types for the filter control.
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	dashboard, err := s.events.Dashboard(r.Context(), events.DashboardQuery{
		Filters: events.Filters{
			Search:   q.Get("search"),
			Sport:    q.Get("sport"),
			Date:     q.Get("date"),
			Location: q.Get("location"),
		},
		Page: q.Get("page"),
		View: q.Get("view"),
	})
	if err != nil {
		s.errorJSON(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"data": dashboard})
}

// handleGetEvent returns one event with its venues.
func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := s.events.GetEventByID(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		s.errorJSON(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"data": event})
}

// handleCreateEvent creates an event from a JSON payload.
func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var input validate.EventInput
	if err := s.readJSON(w, r, &input); err != nil {
		s.errorJSON(w, r, err)
		return
	}
	event, err := s.events.Create(r.Context(), input)
	if err != nil {
		s.errorJSON(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, envelope{"data": event, "message": "Event created"})
}

// handleUpdateEvent replaces an event and its venues.
func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	var input validate.EventInput
	if err := s.readJSON(w, r, &input); err != nil {
		s.errorJSON(w, r, err)
		return
	}
	event, err := s.events.Update(r.Context(), chi.URLParam(r, "eventID"), input)
	if err != nil {
		s.errorJSON(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"data": event, "message": "Event updated"})
}

// handleDeleteEvent deletes an event with its venues and stored image.
func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "eventID")
	if err := s.events.Delete(r.Context(), id); err != nil {
		s.errorJSON(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"data": envelope{"id": id}, "message": "Event deleted"})
}

// handleListSportTypes returns the sport types used by the caller's events.
func (s *Server) handleListSportTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.events.ListSportTypes(r.Context())
	if err != nil {
		s.errorJSON(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"data": types})
}

// handleListSportOptions returns the suggestions for the sport input.
func (s *Server) handleListSportOptions(w http.ResponseWriter, r *http.Request) {
	options, err := s.events.ListSportOptions(r.Context())
	if err != nil {
		s.errorJSON(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"data": options})
}
