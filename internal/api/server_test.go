package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/onyxenersol/solarsite/internal/auth"
	"github.com/onyxenersol/solarsite/internal/catalog"
	"github.com/onyxenersol/solarsite/internal/config"
	"github.com/onyxenersol/solarsite/internal/contact"
	"github.com/onyxenersol/solarsite/internal/convert"
	"github.com/onyxenersol/solarsite/internal/download"
	"github.com/onyxenersol/solarsite/internal/gallery"
	"github.com/onyxenersol/solarsite/internal/heic"
	"github.com/onyxenersol/solarsite/internal/objectstore/objectstoretest"
)

type fakeEngine struct {
	out   []byte
	err   error
	calls int
}

func (e *fakeEngine) Convert(data []byte, quality int) ([]byte, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return e.out, nil
}

type recordingMailer struct {
	to, subject string
	sent        int
	err         error
}

func (m *recordingMailer) Send(to, from, subject, text, html string) error {
	if m.err != nil {
		return m.err
	}
	m.sent++
	m.to = to
	m.subject = subject
	return nil
}

type recordingSMS struct {
	to, message string
	sent        int
}

func (s *recordingSMS) SendSMS(to, message string) error {
	s.sent++
	s.to = to
	s.message = message
	return nil
}

type testHarness struct {
	server  *Server
	store   *objectstoretest.Fake
	catalog *catalog.MemoryStore
	engine  *fakeEngine
	signer  *auth.Signer
	mailer  *recordingMailer
	sms     *recordingSMS
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	logger := zap.NewNop()
	cfg := &config.Config{
		Address:         ":0",
		MinObjectBytes:  100,
		JPEGQuality:     85,
		LocalGalleryDir: t.TempDir(),
		FromEmail:       "noreply@onyxenersol.com",
		CompanyEmail:    "info@onyxenersol.com",
	}

	store := objectstoretest.New()
	cat := catalog.NewMemoryStore()
	engine := &fakeEngine{out: []byte("jpeg-bytes")}
	dl := download.New(store, cfg.MinObjectBytes, logger)
	conv := convert.NewService(store, dl, engine, cfg.JPEGQuality, logger)
	gal := gallery.NewService(cat, logger)
	contacts := contact.NewMemoryStore()
	mailer := &recordingMailer{}
	sms := &recordingSMS{}
	notifier := contact.NewNotifier(mailer, cfg.CompanyEmail, cfg.FromEmail, logger)
	signer := auth.NewSigner([]byte("test-secret"))

	return &testHarness{
		server:  New(cfg, gal, conv, contacts, notifier, mailer, sms, signer, logger),
		store:   store,
		catalog: cat,
		engine:  engine,
		signer:  signer,
		mailer:  mailer,
		sms:     sms,
	}
}

func (h *testHarness) do(t *testing.T, method, path string, body []byte, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebObjectConvertsAndCachesHEIC(t *testing.T) {
	h := newHarness(t)
	h.store.Put("gallery/photo.heic", make([]byte, 2048))

	rec := h.do(t, http.MethodGet, "/api/objects/web/gallery%2Fphoto.heic", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "public, max-age=31536000, immutable", rec.Header().Get("Cache-Control"))
	assert.Equal(t, []byte("jpeg-bytes"), rec.Body.Bytes())
	assert.Equal(t, 1, h.engine.calls)

	cached, ok := h.store.Get("gallery/converted/photo_q85.jpg")
	require.True(t, ok, "conversion output should be cached")
	assert.Equal(t, []byte("jpeg-bytes"), cached)

	// Second request is a cache hit; the engine is not invoked again.
	rec = h.do(t, http.MethodGet, "/api/objects/web/gallery%2Fphoto.heic", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, h.engine.calls)
}

func TestWebObjectUnreachableOriginal(t *testing.T) {
	h := newHarness(t)
	// Primary path returns a truncated buffer, stream path errors out.
	h.store.Put("gallery/photo.heic", make([]byte, 2048))
	h.store.BytesOverride = func(key string) ([]byte, error) { return []byte{0}, nil }
	h.store.StreamErr = errors.New("connection reset")

	rec := h.do(t, http.MethodGet, "/api/objects/web/gallery%2Fphoto.heic", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Zero(t, h.engine.calls, "no conversion may be attempted on degraded downloads")
}

func TestWebObjectConversionFailure(t *testing.T) {
	h := newHarness(t)
	h.store.Put("gallery/photo.heic", make([]byte, 2048))
	h.engine.err = heic.ErrConversion

	rec := h.do(t, http.MethodGet, "/api/objects/web/gallery%2Fphoto.heic", nil, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	_, ok := h.store.Get("gallery/converted/photo_q85.jpg")
	assert.False(t, ok, "failed conversions must not be cached")
}

func TestWebObjectNonHEICPassthrough(t *testing.T) {
	h := newHarness(t)
	h.store.Put("gallery/photo.jpg", make([]byte, 2048))

	rec := h.do(t, http.MethodGet, "/api/objects/web/gallery%2Fphoto.jpg", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))
	assert.Zero(t, h.engine.calls)
}

func TestObjectEndpoint(t *testing.T) {
	h := newHarness(t)
	h.store.Put("gallery/clip.mp4", make([]byte, 4096))

	rec := h.do(t, http.MethodGet, "/api/objects/gallery%2Fclip.mp4", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "video/mp4", rec.Header().Get("Content-Type"))
	assert.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))

	rec = h.do(t, http.MethodGet, "/api/objects/gallery%2Fmissing.jpg", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGalleryListingDisplayURL(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.catalog.Insert(context.Background(), &catalog.GalleryFile{
		ID:           "f1",
		Filename:     "roof.heic",
		OriginalPath: "gallery/roof.heic",
		FileType:     "image",
		ContentType:  "image/heic",
		FileSize:     "2048",
		CreatedAt:    time.Now().UTC(),
	}))

	rec := h.do(t, http.MethodGet, "/api/gallery", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var listing gallery.Listing
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	require.Len(t, listing.Images, 1)
	assert.Equal(t, "/api/objects/web/gallery%2Froof.heic", listing.Images[0].DisplayURL)
}

func TestContactSubmitStoresAndNotifies(t *testing.T) {
	h := newHarness(t)
	body, _ := json.Marshal(map[string]string{
		"firstName":   "Maria",
		"lastName":    "Santos",
		"email":       "maria@example.com",
		"phone":       "555-0142",
		"address":     "12 Shoreline Dr",
		"monthlyBill": "250",
	})

	rec := h.do(t, http.MethodPost, "/api/contact", body, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var in contact.Inquiry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &in))
	assert.NotEmpty(t, in.ID)

	assert.Equal(t, 1, h.mailer.sent)
	assert.Equal(t, "info@onyxenersol.com", h.mailer.to)
	assert.Contains(t, h.mailer.subject, "Maria Santos")
}

func TestContactSubmitSucceedsWhenEmailFails(t *testing.T) {
	h := newHarness(t)
	h.mailer.err = errors.New("smtp down")
	body, _ := json.Marshal(map[string]string{
		"firstName":   "Maria",
		"lastName":    "Santos",
		"email":       "maria@example.com",
		"phone":       "555-0142",
		"address":     "12 Shoreline Dr",
		"monthlyBill": "250",
	})

	rec := h.do(t, http.MethodPost, "/api/contact", body, "")
	assert.Equal(t, http.StatusOK, rec.Code, "notification failure must not fail the submission")
}

func TestContactSubmitValidation(t *testing.T) {
	h := newHarness(t)
	body, _ := json.Marshal(map[string]string{"firstName": "Maria"})
	rec := h.do(t, http.MethodPost, "/api/contact", body, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, h.mailer.sent)
}

func TestContactListRequiresAuth(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/api/contact", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/contact", nil, "bogus-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token := h.signer.Token("admin", time.Hour)
	rec = h.do(t, http.MethodGet, "/api/contact", nil, token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "["), "empty listing encodes as an array")
}

func TestCommunicationsSMSUsesDefaultFollowUp(t *testing.T) {
	h := newHarness(t)
	contacts := h.server.contacts
	in := &contact.Inquiry{
		FirstName:   "Maria",
		LastName:    "Santos",
		Email:       "maria@example.com",
		Phone:       "555-0142",
		Address:     "12 Shoreline Dr",
		MonthlyBill: "250",
	}
	require.NoError(t, contacts.Insert(context.Background(), in))

	token := h.signer.Token("rep", time.Hour)
	rec := h.do(t, http.MethodPost, "/api/communications/sms/"+in.ID, nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, h.sms.sent)
	assert.Equal(t, "555-0142", h.sms.to)
	assert.Contains(t, h.sms.message, "follow up on your solar quote request")
}

func TestCommunicationsEmail(t *testing.T) {
	h := newHarness(t)
	in := &contact.Inquiry{
		FirstName:   "Maria",
		LastName:    "Santos",
		Email:       "maria@example.com",
		Phone:       "555-0142",
		Address:     "12 Shoreline Dr",
		MonthlyBill: "250",
	}
	require.NoError(t, h.server.contacts.Insert(context.Background(), in))

	body, _ := json.Marshal(map[string]string{"message": "Your panels ship Friday."})
	token := h.signer.Token("rep", time.Hour)
	rec := h.do(t, http.MethodPost, "/api/communications/email/"+in.ID, body, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, h.mailer.sent)
	assert.Equal(t, "maria@example.com", h.mailer.to)
	assert.Equal(t, "Follow-up from Onyx Energy Solutions", h.mailer.subject)
}

func TestCommunicationsUnknownInquiry(t *testing.T) {
	h := newHarness(t)
	token := h.signer.Token("rep", time.Hour)
	rec := h.do(t, http.MethodPost, "/api/communications/sms/missing", nil, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
