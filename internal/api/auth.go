package api

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	googleOauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"github.com/intermernet/matchday/internal/apperr"
	"github.com/intermernet/matchday/internal/auth"
	"github.com/intermernet/matchday/internal/database"
	"github.com/intermernet/matchday/internal/email"
	"github.com/intermernet/matchday/internal/validate"
)

// verificationTTL is how long an emailed verification link stays valid.
const verificationTTL = 24 * time.Hour

const oauthStateCookie = "oauthstate"

const (
	msgSignUpFailed  = "We could not create your account right now."
	msgSignUpOK      = "Account created. Please check your inbox to verify your email."
	msgSignInFailed  = "We could not sign you in right now."
	msgOAuthInit     = "Unable to initialize Google sign-in."
	msgOAuthFailed   = "Google sign-in failed. Please try again."
	msgInvalidVerify = "This verification link is invalid or has expired."
)

// Provider wording for rejected sign-ins. Normalization turns these into
// the user-facing messages.
var (
	errInvalidLogin      = errors.New("invalid login credentials")
	errEmailNotConfirmed = errors.New("email not confirmed")
)

// --- SESSION COOKIE ---

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.config.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(auth.SessionTTL / time.Second),
		HttpOnly: true,
		Secure:   s.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.config.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// startSession issues a session token for user and stores it in the cookie.
func (s *Server) startSession(w http.ResponseWriter, user *database.User) (string, error) {
	token, err := auth.GenerateJWT(auth.Principal{UserID: user.ID, Email: user.Email}, s.config.JwtSecret, s.now())
	if err != nil {
		return "", err
	}
	s.setSessionCookie(w, token)
	return token, nil
}

// --- PASSWORD-BASED AUTH ---

// handleSignUp creates an account. With SMTP configured a verification link
// is mailed; otherwise the address is trusted immediately.
func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var input validate.CredentialsInput
	if err := s.readJSON(w, r, &input); err != nil {
		s.errorJSON(w, r, err)
		return
	}
	creds, err := validate.ValidateCredentials(input)
	if err != nil {
		s.errorJSON(w, r, err)
		return
	}

	hash, err := auth.HashPassword(creds.Password)
	if err != nil {
		s.errorJSON(w, r, apperr.Wrap(apperr.CodeUnknown, msgSignUpFailed, err))
		return
	}

	sendMail := s.config.SMTPEnabled()
	var (
		user  *database.User
		token string
	)
	err = s.db.Write(r.Context(), func(tx *sql.Tx) error {
		var err error
		user, err = s.db.CreateUser(r.Context(), tx, creds.Email, hash, !sendMail)
		if err != nil {
			return err
		}
		if !sendMail {
			return nil
		}
		token = uuid.NewString()
		return s.db.CreateEmailVerification(r.Context(), tx, token, user.ID, s.now().Add(verificationTTL))
	})
	if err != nil {
		if errors.Is(err, database.ErrAlreadyExists) {
			s.errorJSON(w, r, apperr.Wrap(apperr.CodeValidation, apperr.Friendly(err, msgSignUpFailed), err))
			return
		}
		s.errorJSON(w, r, apperr.Normalize(err, apperr.CodeUnknown, msgSignUpFailed))
		return
	}

	if sendMail {
		link := email.VerificationLink(s.config.PublicBaseURL, token)
		if err := s.email.SendVerificationEmail(user.Email, link); err != nil {
			s.requestLog(r).WithError(err).WithField("user_id", user.ID).Error("could not send verification email")
		}
	}

	s.writeJSON(w, http.StatusCreated, envelope{
		"data":    toUserResponse(user),
		"message": msgSignUpOK,
	})
}

// handleVerifyEmail consumes a verification token and sends the browser to
// the frontend's login page.
func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		s.errorJSON(w, r, apperr.Validation(msgInvalidVerify))
		return
	}

	err := s.db.Write(r.Context(), func(tx *sql.Tx) error {
		userID, err := s.db.ConsumeEmailVerification(r.Context(), tx, token, s.now())
		if err != nil {
			return err
		}
		return s.db.MarkEmailVerified(r.Context(), tx, userID, s.now())
	})
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			s.errorJSON(w, r, apperr.Validation(msgInvalidVerify))
			return
		}
		s.errorJSON(w, r, apperr.Normalize(err, apperr.CodeUnknown, msgInvalidVerify))
		return
	}

	http.Redirect(w, r, s.config.FrontendURL+"/login?verified=1", http.StatusSeeOther)
}

// handleLogin authenticates with email and password and starts a session.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var input validate.CredentialsInput
	if err := s.readJSON(w, r, &input); err != nil {
		s.errorJSON(w, r, err)
		return
	}
	creds, err := validate.ValidateCredentials(input)
	if err != nil {
		s.errorJSON(w, r, err)
		return
	}

	user, err := s.db.GetUserByEmail(r.Context(), s.db.DB(), creds.Email)
	switch {
	case errors.Is(err, database.ErrNotFound):
		s.errorJSON(w, r, apperr.Normalize(errInvalidLogin, apperr.CodeUnauthorized, msgSignInFailed))
		return
	case err != nil:
		s.errorJSON(w, r, apperr.Normalize(err, apperr.CodeUnknown, msgSignInFailed))
		return
	}

	// OAuth-only accounts have no password and are rejected like a mismatch.
	if !user.PasswordHash.Valid || !auth.CheckPassword(creds.Password, user.PasswordHash.String) {
		s.errorJSON(w, r, apperr.Normalize(errInvalidLogin, apperr.CodeUnauthorized, msgSignInFailed))
		return
	}
	if !user.Verified() {
		s.errorJSON(w, r, apperr.Normalize(errEmailNotConfirmed, apperr.CodeUnauthorized, msgSignInFailed))
		return
	}

	token, err := s.startSession(w, user)
	if err != nil {
		s.errorJSON(w, r, apperr.Wrap(apperr.CodeUnknown, msgSignInFailed, err))
		return
	}

	s.writeJSON(w, http.StatusOK, envelope{
		"data":    envelope{"token": token, "user": toUserResponse(user)},
		"message": "Welcome back.",
	})
}

// handleLogout clears the session cookie. It succeeds without a session.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.clearSessionCookie(w)
	s.writeJSON(w, http.StatusOK, envelope{"message": "Signed out"})
}

// handleGetMe returns the profile of the signed-in user.
func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		s.errorJSON(w, r, sessionRequired(r))
		return
	}

	user, err := s.db.GetUserByID(r.Context(), s.db.DB(), p.UserID)
	if errors.Is(err, database.ErrNotFound) {
		s.errorJSON(w, r, apperr.Unauthorized("Please login again"))
		return
	}
	if err != nil {
		s.errorJSON(w, r, apperr.Normalize(err, apperr.CodeUnknown, "We could not load your profile."))
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"data": toUserResponse(user)})
}

// sessionRequired is the UNAUTHORIZED error for handlers that need a
// principal, worded for an expired session when a stale token was sent.
func sessionRequired(r *http.Request) error {
	if err := auth.SessionErrorFromContext(r.Context()); err != nil {
		return apperr.Wrap(apperr.CodeUnauthorized, apperr.Friendly(err, "Please login again"), err)
	}
	return apperr.Unauthorized("Please login again")
}

// --- OAUTH LOGIC ---

// generateStateOauthCookie creates a random state string and sets it as an HttpOnly cookie
// to prevent Cross-Site Request Forgery (CSRF) attacks during the OAuth flow.
func (s *Server) generateStateOauthCookie(w http.ResponseWriter) (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate oauth state: %w", err)
	}
	state := hex.EncodeToString(b)
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		Expires:  s.now().Add(10 * time.Minute),
		HttpOnly: true,
		Secure:   s.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return state, nil
}

// handleGoogleLogin redirects the user to Google's consent page.
func (s *Server) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if s.oauth == nil {
		s.errorJSON(w, r, apperr.New(apperr.CodeUnknown, msgOAuthInit))
		return
	}
	state, err := s.generateStateOauthCookie(w)
	if err != nil {
		s.errorJSON(w, r, apperr.Wrap(apperr.CodeUnknown, msgOAuthInit, err))
		return
	}
	http.Redirect(w, r, s.oauth.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// handleGoogleCallback finishes the OAuth flow: it checks the state cookie,
// exchanges the code, upserts a verified user for the Google address, and
// sends the browser to the dashboard with a session cookie set.
func (s *Server) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if s.oauth == nil {
		s.errorJSON(w, r, apperr.New(apperr.CodeUnknown, msgOAuthInit))
		return
	}

	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || r.FormValue("state") != stateCookie.Value {
		s.errorJSON(w, r, apperr.Unauthorized("Invalid sign-in state. Please try again."))
		return
	}
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Value: "", Path: "/", MaxAge: -1})

	token, err := s.oauth.Exchange(r.Context(), r.FormValue("code"))
	if err != nil {
		s.errorJSON(w, r, apperr.Normalize(err, apperr.CodeUnauthorized, msgOAuthFailed))
		return
	}
	address, err := s.googleEmail(r, token)
	if err != nil {
		s.errorJSON(w, r, apperr.Normalize(err, apperr.CodeUnknown, msgOAuthFailed))
		return
	}

	user, err := s.upsertOAuthUser(r, address)
	if err != nil {
		s.errorJSON(w, r, apperr.Normalize(err, apperr.CodeUnknown, msgOAuthFailed))
		return
	}
	if _, err := s.startSession(w, user); err != nil {
		s.errorJSON(w, r, apperr.Wrap(apperr.CodeUnknown, msgOAuthFailed, err))
		return
	}

	http.Redirect(w, r, s.config.FrontendURL+"/dashboard", http.StatusTemporaryRedirect)
}

// fetchGoogleEmail reads the account address from Google's userinfo API.
func (s *Server) fetchGoogleEmail(r *http.Request, token *oauth2.Token) (string, error) {
	svc, err := googleOauth2.NewService(r.Context(), option.WithTokenSource(s.oauth.TokenSource(r.Context(), token)))
	if err != nil {
		return "", fmt.Errorf("create oauth service: %w", err)
	}
	info, err := svc.Userinfo.Get().Context(r.Context()).Do()
	if err != nil {
		return "", fmt.Errorf("get user info: %w", err)
	}
	if info.Email == "" {
		return "", errors.New("google account has no email address")
	}
	return strings.ToLower(info.Email), nil
}

// upsertOAuthUser finds the user with address or creates one. Google has
// verified the address, so the account is marked verified either way.
func (s *Server) upsertOAuthUser(r *http.Request, address string) (*database.User, error) {
	ctx := r.Context()
	var user *database.User
	err := s.db.Write(ctx, func(tx *sql.Tx) error {
		existing, err := s.db.GetUserByEmail(ctx, tx, address)
		switch {
		case errors.Is(err, database.ErrNotFound):
			user, err = s.db.CreateUser(ctx, tx, address, "", true)
			return err
		case err != nil:
			return err
		}
		if !existing.Verified() {
			if err := s.db.MarkEmailVerified(ctx, tx, existing.ID, s.now()); err != nil {
				return err
			}
		}
		user = existing
		return nil
	})
	return user, err
}
