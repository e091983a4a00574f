// Package api exposes the website's HTTP surface: the gallery listing, the
// object-serving endpoints (including on-demand HEIC conversion), the
// contact form and the rep-only communication triggers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/onyxenersol/solarsite/internal/auth"
	"github.com/onyxenersol/solarsite/internal/config"
	"github.com/onyxenersol/solarsite/internal/contact"
	"github.com/onyxenersol/solarsite/internal/contenttype"
	"github.com/onyxenersol/solarsite/internal/convert"
	"github.com/onyxenersol/solarsite/internal/gallery"
	"github.com/onyxenersol/solarsite/internal/heic"
)

// Server exposes the HTTP endpoints.
type Server struct {
	cfg       *config.Config
	gallery   *gallery.Service
	converter *convert.Service
	contacts  contact.Store
	notifier  *contact.Notifier
	mailer    contact.Mailer
	sms       contact.SMSSender
	signer    *auth.Signer
	logger    *zap.Logger
	server    *http.Server
	once      sync.Once
}

// New constructs a Server.
func New(cfg *config.Config, gal *gallery.Service, conv *convert.Service, contacts contact.Store,
	notifier *contact.Notifier, mailer contact.Mailer, sms contact.SMSSender, signer *auth.Signer, logger *zap.Logger) *Server {
	return &Server{
		cfg:       cfg,
		gallery:   gal,
		converter: conv,
		contacts:  contacts,
		notifier:  notifier,
		mailer:    mailer,
		sms:       sms,
		signer:    signer,
		logger:    logger.With(zap.String("component", "api")),
	}
}

// Handler builds the route table. Exposed separately from Run so tests can
// drive it with httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/api/gallery", s.handleGallery)
	mux.HandleFunc("/api/objects/web/", s.handleWebObject)
	mux.HandleFunc("/api/objects/", s.handleObject)
	mux.HandleFunc("/gallery/", s.handleLocalGallery)
	mux.HandleFunc("/api/contact", s.handleContact)
	mux.HandleFunc("/api/contact/", s.requireAuth(s.handleContactByID))
	mux.HandleFunc("/api/communications/", s.requireAuth(s.handleCommunications))
	return corsMiddleware(s.loggingMiddleware(mux))
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.once.Do(func() {
		s.server = &http.Server{
			Addr:    s.cfg.Address,
			Handler: s.Handler(),
		}
	})
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()
	s.logger.Info("api listening", zap.String("address", s.cfg.Address))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGallery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	respondJSON(w, http.StatusOK, s.gallery.List(r.Context()))
}

// handleWebObject serves the display form of an object: HEIC originals come
// back as cached JPEG, everything else passes through unchanged.
func (s *Server) handleWebObject(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	key, ok := objectKey(w, r, "/api/objects/web/")
	if !ok {
		return
	}

	converted := contenttype.IsHEIC(key)
	data, mime, err := s.converter.Serve(r.Context(), key)
	switch {
	case errors.Is(err, convert.ErrNotFound):
		respondError(w, http.StatusNotFound, "Original image not found")
		return
	case errors.Is(err, heic.ErrConversion):
		respondError(w, http.StatusInternalServerError, "Image conversion failed")
		return
	case err != nil:
		s.logger.Error("serve web object", zap.String("key", key), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to serve object")
		return
	}

	cacheControl := "public, max-age=3600"
	if converted {
		// Converted JPEGs are keyed by quality, so the bytes never change.
		cacheControl = "public, max-age=31536000, immutable"
	}
	writeObject(w, data, mime, cacheControl)
}

// handleObject serves raw bytes with the extension-resolved content type.
func (s *Server) handleObject(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	key, ok := objectKey(w, r, "/api/objects/")
	if !ok {
		return
	}
	data, mime, err := s.converter.ServeRaw(r.Context(), key)
	if err != nil {
		respondError(w, http.StatusNotFound, "Object not found")
		return
	}
	writeObject(w, data, mime, "public, max-age=3600")
}

// handleLocalGallery serves media committed to the local gallery directory,
// split into images/ and videos/ subfolders.
func (s *Server) handleLocalGallery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/gallery/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || (parts[0] != "images" && parts[0] != "videos") {
		respondError(w, http.StatusNotFound, "Invalid gallery type")
		return
	}
	filename := filepath.Base(parts[1])
	path := filepath.Join(s.cfg.LocalGalleryDir, "gallery", parts[0], filename)
	if _, err := os.Stat(path); err != nil {
		respondError(w, http.StatusNotFound, "File not found")
		return
	}
	w.Header().Set("Content-Type", contenttype.Resolve(filename))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeFile(w, r, path)
}

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleContactSubmit(w, r)
	case http.MethodGet:
		s.requireAuth(s.handleContactList)(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleContactSubmit(w http.ResponseWriter, r *http.Request) {
	var in contact.Inquiry
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid form data")
		return
	}
	if err := in.Validate(); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{
			"error":   "Invalid form data",
			"details": err.Error(),
		})
		return
	}
	if err := s.contacts.Insert(r.Context(), &in); err != nil {
		s.logger.Error("store inquiry", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to submit inquiry")
		return
	}
	// Notification is best effort. The inquiry is already stored.
	s.notifier.NotifyNewInquiry(&in)
	respondJSON(w, http.StatusOK, in)
}

func (s *Server) handleContactList(w http.ResponseWriter, r *http.Request) {
	inquiries, err := s.contacts.List(r.Context())
	if err != nil {
		s.logger.Error("list inquiries", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to fetch inquiries")
		return
	}
	if inquiries == nil {
		inquiries = []contact.Inquiry{}
	}
	respondJSON(w, http.StatusOK, inquiries)
}

func (s *Server) handleContactByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/contact/")
	in, err := s.contacts.GetByID(r.Context(), id)
	if errors.Is(err, contact.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Inquiry not found")
		return
	}
	if err != nil {
		s.logger.Error("load inquiry", zap.String("id", id), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to fetch inquiry")
		return
	}
	respondJSON(w, http.StatusOK, in)
}

// handleCommunications routes POST /api/communications/{email|sms}/{id}.
func (s *Server) handleCommunications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/communications/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[1] == "" {
		http.NotFound(w, r)
		return
	}
	channel, id := parts[0], parts[1]

	in, err := s.contacts.GetByID(r.Context(), id)
	if errors.Is(err, contact.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Inquiry not found")
		return
	}
	if err != nil {
		s.logger.Error("load inquiry", zap.String("id", id), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to fetch inquiry")
		return
	}

	var body struct {
		Subject string `json:"subject"`
		Message string `json:"message"`
	}
	// An empty body means "use the default message".
	_ = json.NewDecoder(r.Body).Decode(&body)

	switch channel {
	case "email":
		subject := body.Subject
		if subject == "" {
			subject = "Follow-up from Onyx Energy Solutions"
		}
		html := "<p>" + strings.ReplaceAll(body.Message, "\n", "<br>") + "</p>"
		if err := s.mailer.Send(in.Email, s.cfg.FromEmail, subject, body.Message, html); err != nil {
			s.logger.Error("send follow-up email", zap.String("inquiry_id", id), zap.Error(err))
			respondJSON(w, http.StatusOK, map[string]any{"success": false, "message": "Email failed"})
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Email sent"})
	case "sms":
		message := body.Message
		if message == "" {
			message = in.FollowUpSMS()
		}
		if err := s.sms.SendSMS(in.Phone, message); err != nil {
			s.logger.Error("send follow-up sms", zap.String("inquiry_id", id), zap.Error(err))
			respondJSON(w, http.StatusOK, map[string]any{"success": false, "message": "SMS failed"})
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"success": true, "message": "SMS sent"})
	default:
		http.NotFound(w, r)
	}
}

// requireAuth gates a handler behind a bearer token minted by galleryctl.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			respondError(w, http.StatusUnauthorized, "Missing bearer token")
			return
		}
		if _, err := s.signer.Verify(token); err != nil {
			respondError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		next(w, r)
	}
}

// objectKey extracts and percent-decodes the object key after prefix.
func objectKey(w http.ResponseWriter, r *http.Request, prefix string) (string, bool) {
	raw := strings.TrimPrefix(r.URL.EscapedPath(), prefix)
	if raw == "" {
		http.NotFound(w, r)
		return "", false
	}
	key, err := url.PathUnescape(raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid object key")
		return "", false
	}
	return key, true
}

func writeObject(w http.ResponseWriter, data []byte, mime, cacheControl string) {
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", cacheControl)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}
