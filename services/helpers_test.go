package services_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vnkhanh/e-cert-backend/models"
	"github.com/vnkhanh/e-cert-backend/services"
	"github.com/vnkhanh/e-cert-backend/storage"
	"github.com/vnkhanh/e-cert-backend/testutil"
	"github.com/vnkhanh/e-cert-backend/utils"
)

const (
	testDomain   = "st.niituniversity.in"
	testUploader = "registrar@st.niituniversity.in"
)

type fakeMailer struct {
	mu      sync.Mutex
	enabled bool
	err     error
	sent    []string
}

func (m *fakeMailer) Enabled() bool { return m.enabled }

func (m *fakeMailer) SendWithAttachment(to, _, _, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, to)
	return nil
}

type fakeMirror struct {
	objects map[string][]byte
	err     error
}

func (m *fakeMirror) Upload(objectPath string, data []byte, _ string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[objectPath] = data
	return "https://cdn.test/" + objectPath, nil
}

type recordedEvent struct {
	Key   string
	Event any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *fakePublisher) Publish(key string, v any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{Key: key, Event: v})
}

// failingRenderer fails for students whose name starts with "fail".
type failingRenderer struct {
	next services.Renderer
}

func (r failingRenderer) Render(ctx context.Context, st models.StudentRecord, certID int) (string, error) {
	if name, _ := st.Data.Get("name"); strings.HasPrefix(name, "fail") {
		return "", errors.New("renderer exploded")
	}
	return r.next.Render(ctx, st, certID)
}

type env struct {
	dir       string
	store     storage.Store
	tokens    *utils.TokenManager
	links     *services.LinkBuilder
	mailer    *fakeMailer
	mirror    *fakeMirror
	events    *fakePublisher
	auth      *services.AuthService
	certs     *services.CertificateService
	ingest    *services.IngestService
	verify    *services.VerificationService
	templates *services.TemplateService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewJSONStore(dir)
	require.NoError(t, err)

	log := testutil.MakeNoopLogger()
	e := &env{
		dir:    dir,
		store:  store,
		tokens: utils.NewTokenManager("test-secret"),
		mailer: &fakeMailer{},
		mirror: &fakeMirror{},
		events: &fakePublisher{},
	}
	e.links = services.NewLinkBuilder(e.tokens, "http://verify.test", "", "5000")
	renderer := failingRenderer{next: services.NewHTMLRenderer(dir, e.links)}

	e.auth = services.NewAuthService(store, e.tokens, log, testDomain, 0)
	e.certs = services.NewCertificateService(store, renderer, e.links, e.mailer, e.mirror, dir, log)
	e.ingest = services.NewIngestService(store, e.certs, e.events, log)
	e.verify = services.NewVerificationService(store, e.tokens, log)
	e.templates = services.NewTemplateService(store, e.mirror, filepath.Join(dir, "templates"), log)
	return e
}

func (e *env) upload(t *testing.T, csv string, action string) *services.UploadResult {
	t.Helper()
	res, err := e.ingest.Upload(context.Background(), services.UploadInput{
		Uploader:        testUploader,
		CSV:             strings.NewReader(csv),
		DuplicateAction: action,
	})
	require.NoError(t, err)
	return res
}
