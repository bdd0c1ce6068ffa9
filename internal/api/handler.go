package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gonkalabs/gonka-redact-go/internal/audit"
	"github.com/gonkalabs/gonka-redact-go/internal/pdfdoc"
	"github.com/gonkalabs/gonka-redact-go/internal/review"
	"github.com/gonkalabs/gonka-redact-go/internal/sanitize"
)

// ExportLog lists recorded exports.
type ExportLog interface {
	Recent(ctx context.Context, limit int) ([]audit.Entry, error)
}

// Handler implements all HTTP endpoints.
type Handler struct {
	session   *review.Session
	exports   ExportLog // nil when the audit log is disabled
	maxUpload int64
}

// DefaultMaxUpload bounds upload bodies when no limit is configured.
const DefaultMaxUpload = 25 << 20

// New creates a Handler over session. exports may be nil.
func New(session *review.Session, exports ExportLog, maxUpload int64) *Handler {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUpload
	}
	return &Handler{session: session, exports: exports, maxUpload: maxUpload}
}

// Register mounts routes on the given mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("POST /v1/document", h.upload)
	mux.HandleFunc("GET /v1/document", h.document)
	mux.HandleFunc("GET /v1/fragments", h.fragments)
	mux.HandleFunc("POST /v1/spans", h.addSpan)
	mux.HandleFunc("POST /v1/spans/confirm-all", h.setAll(sanitize.StatusConfirmed))
	mux.HandleFunc("POST /v1/spans/reject-all", h.setAll(sanitize.StatusRejected))
	mux.HandleFunc("POST /v1/spans/{id}/status", h.setStatus)
	mux.HandleFunc("POST /v1/redact", h.redact)
	mux.HandleFunc("GET /v1/exports", h.listExports)
}

// ---------- endpoints ----------

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// upload accepts a PDF (multipart "file" field or raw application/pdf body)
// or a text/plain body, then extracts, suggests and installs it.
func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	defer r.Body.Close()

	name := r.URL.Query().Get("name")
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var (
		data []byte
		err  error
	)
	switch mediaType {
	case "multipart/form-data":
		var file io.ReadCloser
		var filename string
		file, filename, err = formFile(r)
		if err == nil {
			defer file.Close()
			if name == "" {
				name = filename
			}
			data, err = io.ReadAll(file)
		}
	default:
		data, err = io.ReadAll(r.Body)
	}
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeErr(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeErr(w, http.StatusBadRequest, "failed to read body: "+err.Error())
		return
	}

	var snap review.Snapshot
	if mediaType == "text/plain" {
		snap, err = h.session.LoadText(r.Context(), name, string(data))
	} else {
		snap, err = h.session.Load(r.Context(), name, data)
	}
	if err != nil {
		h.fail(w, err)
		return
	}
	slog.Info("api: document uploaded", "name", name, "type", mediaType, "bytes", len(data))
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) document(w http.ResponseWriter, _ *http.Request) {
	snap, err := h.session.Snapshot()
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) fragments(w http.ResponseWriter, _ *http.Request) {
	gen, frags, err := h.session.Fragments()
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"generation": gen,
		"fragments":  frags,
	})
}

type spanRequest struct {
	Generation uint64 `json:"generation"`
	Selection  string `json:"selection"`
	Status     string `json:"status"`
}

func (h *Handler) addSpan(w http.ResponseWriter, r *http.Request) {
	req, ok := decode(w, r)
	if !ok {
		return
	}
	sp, err := h.session.AddSelection(req.Generation, req.Selection)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sp)
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	req, ok := decode(w, r)
	if !ok {
		return
	}
	sp, err := h.session.SetStatus(req.Generation, r.PathValue("id"), req.Status)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sp)
}

func (h *Handler) setAll(st sanitize.Status) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		generation, ok := queryGeneration(w, r)
		if !ok {
			return
		}
		counts, err := h.session.SetAll(generation, string(st))
		if err != nil {
			h.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, counts)
	}
}

// redact returns the redacted PDF, or the redacted text with ?format=text.
// An optional ?generation= pins the document the client reviewed.
func (h *Handler) redact(w http.ResponseWriter, r *http.Request) {
	generation, ok := queryGeneration(w, r)
	if !ok {
		return
	}
	if r.URL.Query().Get("format") == "text" {
		text, err := h.session.Redacted(generation)
		if err != nil {
			h.fail(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, text)
		return
	}

	out, err := h.session.Export(r.Context(), generation)
	if err != nil {
		h.fail(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": out.FileName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(out.PDF)))
	w.Header().Set("X-Redaction-Digest", out.Digest)
	if a := out.Attestation; a != nil {
		w.Header().Set("X-Redaction-Signature", a.Signature)
		w.Header().Set("X-Redaction-Signer", a.Signer)
		w.Header().Set("X-Redaction-Timestamp", strconv.FormatInt(a.Timestamp, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(out.PDF); err != nil {
		slog.Warn("api: write pdf", "err", err)
	}
}

func (h *Handler) listExports(w http.ResponseWriter, r *http.Request) {
	if h.exports == nil {
		writeErr(w, http.StatusNotFound, "audit log is not enabled")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.exports.Recent(r.Context(), limit)
	if err != nil {
		slog.Error("api: list exports", "err", err)
		writeErr(w, http.StatusInternalServerError, "failed to read audit log")
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"exports": entries})
}

// ---------- helpers ----------

// fail maps review errors to HTTP statuses. Messages for the upload and
// redaction failures are the ones shown to the reviewer.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pdfdoc.ErrNotPDF):
		writeErr(w, http.StatusUnsupportedMediaType, "Please upload a PDF file.")
	case errors.Is(err, review.ErrExtract):
		slog.Warn("api: extraction failed", "err", err)
		writeErr(w, http.StatusUnprocessableEntity, "Failed to read PDF. Please try another file.")
	case errors.Is(err, sanitize.ErrOracle):
		slog.Warn("api: detection failed", "err", err)
		writeErr(w, http.StatusBadGateway, "PII detection is unavailable. Please try again.")
	case errors.Is(err, sanitize.ErrNothingToRedact):
		writeErr(w, http.StatusUnprocessableEntity, "There is no confirmed PII to redact.")
	case errors.Is(err, sanitize.ErrNotFound):
		writeErr(w, http.StatusNotFound, err.Error())
	case errors.Is(err, sanitize.ErrNoOccurrence):
		writeErr(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, sanitize.ErrInvalidStatus), errors.Is(err, sanitize.ErrInvalidRange):
		writeErr(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, review.ErrNoDocument), errors.Is(err, review.ErrStale):
		writeErr(w, http.StatusConflict, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeErr(w, http.StatusServiceUnavailable, "request cancelled")
	default:
		slog.Error("api: unexpected error", "err", err)
		writeErr(w, http.StatusInternalServerError, "internal error")
	}
}

func formFile(r *http.Request) (io.ReadCloser, string, error) {
	f, hdr, err := r.FormFile("file")
	if err != nil {
		return nil, "", err
	}
	return f, hdr.Filename, nil
}

// queryGeneration reads the optional ?generation= parameter; zero means the
// caller does not pin a document.
func queryGeneration(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	raw := r.URL.Query().Get("generation")
	if raw == "" {
		return 0, true
	}
	g, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid generation")
		return 0, false
	}
	return g, true
}

func decode(w http.ResponseWriter, r *http.Request) (spanRequest, bool) {
	var req spanRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return req, false
	}
	req.Status = strings.TrimSpace(req.Status)
	return req, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
