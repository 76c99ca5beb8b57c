package service_test

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/docgen-client/internal/documents/domain"
	dochttp "github.com/GoSim-25-26J-441/docgen-client/internal/documents/http"
	"github.com/GoSim-25-26J-441/docgen-client/internal/documents/repository"
	"github.com/GoSim-25-26J-441/docgen-client/internal/documents/session"
)

const testToken = "test-token"

type testEnv struct {
	stub   *dochttp.StubServer
	client *dochttp.Client
	repo   *repository.ProjectRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	stub := dochttp.NewStubServer(dochttp.StubOptions{Token: testToken})
	srv := httptest.NewServer(stub.Router())
	t.Cleanup(srv.Close)

	client := dochttp.NewClient(dochttp.Options{BaseURL: srv.URL + "/api"}, session.New(testToken))
	return &testEnv{
		stub:   stub,
		client: client,
		repo:   repository.NewProjectRepository(client),
	}
}

// deadClient points at a server that has already shut down.
func deadClient(t *testing.T) *dochttp.Client {
	t.Helper()
	srv := httptest.NewServer(gin.New())
	url := srv.URL
	srv.Close()
	return dochttp.NewClient(dochttp.Options{BaseURL: url + "/api"}, session.New(testToken))
}

// createQ4 creates the three-section "Q4 Report" and makes it active.
func (e *testEnv) createQ4(t *testing.T) *domain.Project {
	t.Helper()
	ctx := context.Background()
	p, err := e.repo.CreateProject(ctx, domain.CreateProjectSpec{
		Title:     "Q4 Report",
		Kind:      domain.KindDocument,
		MainTopic: "Quarterly results",
		Sections: []domain.SectionSpec{
			{Title: "Summary"},
			{Title: "Revenue"},
			{Title: "Outlook"},
		},
	})
	require.NoError(t, err)
	p, err = e.repo.FetchProject(ctx, p.ID)
	require.NoError(t, err)
	return p
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.ProgressEvent
}

func (r *recordingPublisher) Publish(ctx context.Context, ev domain.ProgressEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingPublisher) Events() []domain.ProgressEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.ProgressEvent(nil), r.events...)
}
