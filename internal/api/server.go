package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/intermernet/matchday/internal/apperr"
	"github.com/intermernet/matchday/internal/config"
	"github.com/intermernet/matchday/internal/database"
	"github.com/intermernet/matchday/internal/email"
	"github.com/intermernet/matchday/internal/events"
	"github.com/intermernet/matchday/internal/realtime"
)

// Server holds every dependency of the HTTP handlers. Handlers stay thin:
// event workflows live in the events service, account flows talk to the
// database service directly.
type Server struct {
	config *config.Config
	db     *database.Service
	events *events.Service
	broker *realtime.Broker
	email  *email.EmailService
	log    logrus.FieldLogger

	// oauth is nil when Google sign-in is not configured.
	oauth *oauth2.Config
	// googleEmail resolves the verified address behind an OAuth token.
	googleEmail func(r *http.Request, token *oauth2.Token) (string, error)
	now         func() time.Time
}

// NewServer wires the handlers to their dependencies.
func NewServer(cfg *config.Config, db *database.Service, eventService *events.Service, broker *realtime.Broker, emailService *email.EmailService, log logrus.FieldLogger) *Server {
	s := &Server{
		config: cfg,
		db:     db,
		events: eventService,
		broker: broker,
		email:  emailService,
		log:    log,
		now:    time.Now,
	}
	if cfg.GoogleOAuthEnabled() {
		s.oauth = &oauth2.Config{
			ClientID:     cfg.GoogleOauthClientID,
			ClientSecret: cfg.GoogleOauthClientSecret,
			RedirectURL:  cfg.GoogleOauthRedirectURL,
			Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile"},
			Endpoint:     google.Endpoint,
		}
	}
	s.googleEmail = s.fetchGoogleEmail
	return s
}

// envelope wraps every JSON response: {"data": ..., "message": ...} on
// success and {"error": ..., "code": ...} on failure.
type envelope map[string]interface{}

// writeJSON marshals data and writes it with status and any extra headers.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}, headers ...http.Header) {
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		s.log.WithError(err).Error("could not marshal response")
		http.Error(w, "Internal Server Error: Failed to marshal JSON", http.StatusInternalServerError)
		return
	}

	if len(headers) > 0 {
		for key, value := range headers[0] {
			w.Header()[key] = value
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(js)
}

// errorJSON classifies err and writes the failure envelope. Only the
// classified message is sent; the cause is logged for UNKNOWN errors.
func (s *Server) errorJSON(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperr.From(err)
	status := appErr.Code.HTTPStatus()

	if appErr.Code == apperr.CodeUnknown {
		entry := s.requestLog(r)
		if cause := errors.Unwrap(appErr); cause != nil {
			entry = entry.WithError(cause)
		}
		entry.WithField("status", status).Error(appErr.Message)
	}

	s.writeJSON(w, status, envelope{"error": appErr.Message, "code": appErr.Code})
}

// readJSON decodes the request body into dst. Malformed bodies are a
// validation failure.
func (s *Server) readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return apperr.Wrap(apperr.CodeValidation, "Invalid request body", err)
	}
	return nil
}
