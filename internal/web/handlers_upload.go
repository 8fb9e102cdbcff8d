package web

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/JonMunkholm/postventa/internal/ingest"
)

// upload is the spreadsheet part of a multipart request.
type upload struct {
	file multipart.File
	name string
}

// readUpload parses the "file" part of a multipart form, bounded by
// UPLOAD_MAX_FILE_SIZE.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*upload, error) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			return nil, fmt.Errorf("%w: limit is %d bytes", errFileTooLarge, maxSize)
		}
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
			return nil, errNoFile
		}
		return nil, fmt.Errorf("%w: %v", errInvalidForm, err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, errNoFile
	}
	return &upload{file: file, name: header.Filename}, nil
}

// ingestUpload runs a persisting ingestion under UPLOAD_TIMEOUT.
func (s *Server) ingestUpload(w http.ResponseWriter, r *http.Request) (*ingest.Result, error) {
	up, err := s.readUpload(w, r)
	if err != nil {
		return nil, err
	}
	defer up.file.Close()

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Upload.Timeout)
	defer cancel()

	return s.ingest.Ingest(ctx, up.name, up.file)
}

// handleIngest appends an uploaded spreadsheet to the history.
// Responds 201 with the run result.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	res, err := s.ingestUpload(w, r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSONStatus(w, http.StatusCreated, res)
}

// handleUploadForm is the browser variant of handleIngest; it redirects
// back to the dashboard.
func (s *Server) handleUploadForm(w http.ResponseWriter, r *http.Request) {
	res, err := s.ingestUpload(w, r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	q := url.Values{"inserted": {strconv.FormatInt(res.Inserted, 10)}}
	http.Redirect(w, r, "/?"+q.Encode(), http.StatusSeeOther)
}

// handlePreview runs the pipeline without persisting and returns the
// records an ingestion would append.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	up, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	defer up.file.Close()

	res, err := s.ingest.Preview(r.Context(), up.name, up.file)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, res)
}
