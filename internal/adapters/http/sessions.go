package httpadapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/abhikalparya/documentchatbot/internal/core/domain"
	"github.com/abhikalparya/documentchatbot/internal/core/ports"
	"github.com/abhikalparya/documentchatbot/internal/core/usecase"
	"github.com/abhikalparya/documentchatbot/internal/infrastructure/transcript"
)

const (
	defaultMaxUploadMB = 50
	defaultIndexLimit  = 50
)

type turnResponse struct {
	Reply   *domain.Reply       `json:"reply"`
	Session domain.SessionState `json:"session"`
	Error   string              `json:"error,omitempty"`
}

type failedTransitionResponse struct {
	Error   string              `json:"error"`
	Session domain.SessionState `json:"session"`
}

func (rt *Router) session(w http.ResponseWriter, r *http.Request) (ports.ChatSession, bool) {
	sess, err := rt.sessions.Get(chi.URLParam(r, "session_id"))
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return sess, true
}

func (rt *Router) createSession(w http.ResponseWriter, _ *http.Request) {
	sess, err := rt.sessions.Create()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess.State())
}

func (rt *Router) getSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := rt.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.State())
}

func (rt *Router) maxUploadBytes() int64 {
	mb := rt.cfg.MaxUploadMB
	if mb <= 0 {
		mb = defaultMaxUploadMB
	}
	return int64(mb) << 20
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	sess, ok := rt.session(w, r)
	if !ok {
		return
	}

	limit := rt.maxUploadBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": fmt.Sprintf("upload exceeds %d MB", limit>>20)})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart form is required"})
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	mimeType := fileHeader.Header.Get("Content-Type")
	if !usecase.IsPDF(fileHeader.Filename, mimeType) {
		writeJSON(w, http.StatusUnsupportedMediaType, map[string]string{"error": "only PDF documents are supported"})
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read uploaded file"})
		return
	}

	state, err := sess.UploadDocument(r.Context(), domain.Upload{
		Filename: fileHeader.Filename,
		MimeType: mimeType,
		Data:     data,
	})
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), failedTransitionResponse{Error: errorMessage(err), Session: state})
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (rt *Router) selectDocument(w http.ResponseWriter, r *http.Request) {
	sess, ok := rt.session(w, r)
	if !ok {
		return
	}

	var req struct {
		Filename string `json:"filename"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Filename) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "filename is required"})
		return
	}

	state, err := sess.SelectDocument(r.Context(), req.Filename)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), failedTransitionResponse{Error: errorMessage(err), Session: state})
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (rt *Router) askQuestion(w http.ResponseWriter, r *http.Request) {
	sess, ok := rt.session(w, r)
	if !ok {
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "text is required"})
		return
	}
	if !sess.State().HasDocuments() {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "upload a PDF document before asking questions"})
		return
	}

	reply, err := sess.AskQuestion(r.Context(), req.Text)
	if err != nil {
		if reply == nil {
			writeError(w, err)
			return
		}
		writeJSON(w, mapErrorToHTTPStatus(err), turnResponse{Reply: reply, Session: sess.State(), Error: errorMessage(err)})
		return
	}
	writeJSON(w, http.StatusOK, turnResponse{Reply: reply, Session: sess.State()})
}

func (rt *Router) exportTranscript(w http.ResponseWriter, r *http.Request) {
	sess, ok := rt.session(w, r)
	if !ok {
		return
	}

	format, err := transcript.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := transcript.Render(&buf, format, sess.State()); err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "transcript-"+sess.ID()+"."+format.Extension()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (rt *Router) listIndexes(w http.ResponseWriter, r *http.Request) {
	limit := defaultIndexLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	records, err := rt.catalog.ListIndexes(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"indexes": records})
}
