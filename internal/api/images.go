package api

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/intermernet/matchday/internal/apperr"
	"github.com/intermernet/matchday/internal/auth"
	"github.com/intermernet/matchday/internal/storage"
)

// maxUploadBody bounds the whole multipart request: the image limit plus
// room for the form framing.
const maxUploadBody = storage.MaxImageSize + 1<<20

// handleUploadImage stores the multipart field "image" and returns its
// public URL and object path for a later create or update.
func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.PrincipalFromContext(r.Context()); !ok {
		s.errorJSON(w, r, sessionRequired(r))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(storage.MaxImageSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) || strings.Contains(err.Error(), "request body too large") {
			s.errorJSON(w, r, apperr.Validation("Image must be up to 5MB"))
			return
		}
		s.errorJSON(w, r, apperr.Wrap(apperr.CodeValidation, "Image file is required", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("image")
	if err != nil {
		s.errorJSON(w, r, apperr.Wrap(apperr.CodeValidation, "Image file is required", err))
		return
	}
	defer file.Close()

	uploaded, err := s.events.UploadImage(r.Context(), header.Filename, contentType(header), header.Size, file)
	if err != nil {
		s.errorJSON(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, envelope{"data": uploaded, "message": "Image uploaded"})
}

// contentType prefers the declared part type and falls back to sniffing.
func contentType(header *multipart.FileHeader) string {
	if ct := header.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	f, err := header.Open()
	if err != nil {
		return ""
	}
	defer f.Close()
	buf := make([]byte, 512)
	n, _ := f.Read(buf)
	return http.DetectContentType(buf[:n])
}
