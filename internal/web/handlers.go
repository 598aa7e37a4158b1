package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/RareDx/internal/classifier"
	"github.com/JonMunkholm/RareDx/internal/core"
	"github.com/JonMunkholm/RareDx/internal/logging"
	"github.com/JonMunkholm/RareDx/internal/session"
	"github.com/JonMunkholm/RareDx/internal/web/templates"
)

// multipartOverhead is the slack allowed above the image size for the
// multipart envelope.
const multipartOverhead = 1 << 20

// catalogFetchTimeout bounds the catalogue lookup made while rendering a page.
const catalogFetchTimeout = 3 * time.Second

// handlePage renders the classification page for the session.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r.Context())
	s.renderPage(w, r, sess, nil, http.StatusOK)
}

// renderPage writes the full page with an optional alert.
func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, sess *session.Session, alert *templates.Alert, status int) {
	data := templates.PageData{
		Snapshot: sess.Orchestrator.Snapshot(),
		Diseases: s.cachedDiseases(r.Context()),
		Alert:    alert,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := templates.Page(data).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render page", "error", err)
	}
}

// handleSelect stores the uploaded image as the session's selection.
func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r.Context())
	maxSize := s.cfg.Upload.MaxFileSize

	raw, status, err := readUpload(w, r, maxSize)
	if err != nil {
		s.respondError(w, r, err, status)
		return
	}

	if err := sess.Orchestrator.TrySelectFile(raw); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, core.ErrControllerClosed) || errors.Is(err, core.ErrSubmissionInProgress) {
			status = http.StatusConflict
		}
		s.respondError(w, r, err, status)
		return
	}

	logging.FromContext(r.Context()).Info("image selected",
		"file", raw.Name,
		"size", len(raw.Data),
	)
	s.respondSnapshot(w, r, sess, "/")
}

// readUpload extracts the "file" part. The returned status goes with err.
func readUpload(w http.ResponseWriter, r *http.Request, maxSize int64) (*core.RawFile, int, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, http.StatusRequestEntityTooLarge, core.ErrFileTooLarge
		}
		return nil, http.StatusBadRequest, fmt.Errorf("invalid form: %w", err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, http.StatusBadRequest, core.ErrEmptyFile
		}
		return nil, http.StatusBadRequest, fmt.Errorf("invalid form: %w", err)
	}
	defer file.Close()

	if header.Size > maxSize {
		return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("%w: %d bytes", core.ErrFileTooLarge, header.Size)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, http.StatusBadRequest, fmt.Errorf("invalid form: read file: %w", err)
	}

	return &core.RawFile{
		Name:     header.Filename,
		MIMEType: header.Header.Get("Content-Type"),
		Data:     data,
	}, http.StatusOK, nil
}

// handleSubmit runs one classification for the session's selection.
//
// The call is detached from the request context: a submission is not
// cancellable, the classifier timeout bounds it and the outcome must land in
// the session even if the browser goes away.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r.Context())

	if _, err := sess.Orchestrator.TrySubmit(context.WithoutCancel(r.Context())); err != nil {
		s.respondError(w, r, err, http.StatusConflict)
		return
	}

	s.respondSnapshot(w, r, sess, "/")
}

// handleToggle flips one result card.
func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r.Context())

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %q", core.ErrUnknownCard, chi.URLParam(r, "index")), http.StatusNotFound)
		return
	}

	if err := sess.Orchestrator.ToggleCard(index); err != nil {
		s.respondError(w, r, err, http.StatusNotFound)
		return
	}

	s.respondSnapshot(w, r, sess, "/#card-"+strconv.Itoa(index))
}

// respondSnapshot answers a form post with a redirect and an API call with
// the session snapshot.
func (s *Server) respondSnapshot(w http.ResponseWriter, r *http.Request, sess *session.Session, location string) {
	if wantsJSON(r) {
		writeJSON(w, r, http.StatusOK, sess.Orchestrator.Snapshot())
		return
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

// handlePreview serves the session's current preview image. Tokens of other
// sessions or of released previews are not found.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r.Context())
	token := chi.URLParam(r, "token")

	file, ok := sess.Orchestrator.SelectedFile()
	if !ok || file.Preview.Token() != token {
		http.NotFound(w, r)
		return
	}

	data, err := s.previews.Open(token)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", data.MIMEType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data.Data)))
	w.Header().Set("Cache-Control", "private, no-store")
	w.Write(data.Data)
}

// handleState returns the session snapshot as JSON.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r.Context())
	writeJSON(w, r, http.StatusOK, sess.Orchestrator.Snapshot())
}

// handleDiseases returns the classifier's disease catalogue.
func (s *Server) handleDiseases(w http.ResponseWriter, r *http.Request) {
	diseases, err := s.diseases(r.Context())
	if err != nil {
		s.respondError(w, r, err, http.StatusBadGateway)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string][]string{"diseases": diseases})
}

// handleDiseasesPage renders the catalogue as a page.
func (s *Server) handleDiseasesPage(w http.ResponseWriter, r *http.Request) {
	diseases, err := s.diseases(r.Context())
	if err != nil {
		s.respondError(w, r, err, http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.DiseasesPage(diseases).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render diseases page", "error", err)
	}
}

// diseases returns the cached catalogue, fetching it when the cache is cold.
func (s *Server) diseases(ctx context.Context) ([]string, error) {
	if cached, ok := s.catalogCache.Get("diseases"); ok {
		return cached, nil
	}
	if s.catalog == nil {
		return nil, nil
	}

	diseases, err := s.catalog.Diseases(ctx)
	if err != nil {
		return nil, err
	}
	s.catalogCache.Add("diseases", diseases)
	return diseases, nil
}

// cachedDiseases is the best-effort catalogue for the page footer.
func (s *Server) cachedDiseases(ctx context.Context) []string {
	ctx, cancel := context.WithTimeout(ctx, catalogFetchTimeout)
	defer cancel()

	diseases, err := s.diseases(ctx)
	if err != nil {
		logging.FromContext(ctx).Debug("disease catalogue unavailable", "error", err)
		return nil
	}
	return diseases
}

// HealthResponse is the /healthz body.
type HealthResponse struct {
	Status     string             `json:"status"`
	Sessions   int                `json:"sessions"`
	Classifier *classifier.Status `json:"classifier,omitempty"`
}

// handleHealth reports liveness with session and classifier counters.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Sessions: s.sessions.Len()}
	if s.health != nil {
		st := s.health.Status()
		resp.Classifier = &st
		if st.Breaker == "open" {
			resp.Status = "degraded"
		}
	}
	writeJSON(w, r, http.StatusOK, resp)
}
