package api

import (
	"fmt"
	"net/http"

	"github.com/intermernet/matchday/internal/apperr"
	"github.com/intermernet/matchday/internal/auth"
)

// handleSSE streams invalidation messages to the signed-in user.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		s.errorJSON(w, r, sessionRequired(r))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.errorJSON(w, r, apperr.New(apperr.CodeUnknown, "Streaming is not supported."))
		return
	}

	client := s.broker.AddClient(p.UserID)
	defer s.broker.RemoveClient(client)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	// The opening comment tells the client it is subscribed.
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case message, open := <-client.C:
			if !open {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", message)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
