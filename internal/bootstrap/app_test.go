package bootstrap

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/docgen-client/config"
	"github.com/GoSim-25-26J-441/docgen-client/internal/documents/domain"
	dochttp "github.com/GoSim-25-26J-441/docgen-client/internal/documents/http"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	gin.SetMode(gin.TestMode)
	srv := httptest.NewServer(dochttp.NewStubServer(dochttp.StubOptions{Token: "t0k"}).Router())
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.Service.APIURL = srv.URL + "/api"
	cfg.Service.Token = "t0k"
	cfg.Workflow.ProgressInterval = time.Millisecond
	return cfg
}

func TestNewApp_WithRedis(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Events.RedisURL = "redis://" + mr.Addr()

	app, err := NewApp(ctx, cfg, AppOptions{})
	require.NoError(t, err)
	defer app.Close()
	require.NotNil(t, app.Progress)

	p, err := app.Repo.CreateProject(ctx, domain.CreateProjectSpec{
		Title: "Q4 Report", Kind: domain.KindDocument, MainTopic: "Quarterly results",
		Sections: []domain.SectionSpec{{Title: "Summary"}, {Title: "Revenue"}},
	})
	require.NoError(t, err)
	_, err = app.Repo.FetchProject(ctx, p.ID)
	require.NoError(t, err)

	require.NoError(t, app.Workflow.GenerateContent(ctx, p.ID))

	latest, err := app.Progress.Latest(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, domain.OpGenerate, latest[0].Kind)
	assert.Equal(t, domain.StatusSucceeded, latest[0].Status)
}

func TestNewApp_WithoutRedis(t *testing.T) {
	app, err := NewApp(context.Background(), testConfig(t), AppOptions{})
	require.NoError(t, err)
	assert.Nil(t, app.Redis)
	assert.Nil(t, app.Progress)
	assert.True(t, app.Session.Authenticated())
	require.NoError(t, app.Close())
}

func TestNewApp_BadRedis(t *testing.T) {
	cfg := testConfig(t)
	cfg.Events.RedisURL = "redis://127.0.0.1:1"

	_, err := NewApp(context.Background(), cfg, AppOptions{})
	assert.Error(t, err)
}

func TestOpenRedis(t *testing.T) {
	ctx := context.Background()

	_, err := OpenRedis(ctx, RedisOptions{})
	assert.Error(t, err)

	_, err = OpenRedis(ctx, RedisOptions{URL: "not a url"})
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	client, err := OpenRedis(ctx, RedisOptions{URL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	client.Close()
}

func TestBuildStubServer(t *testing.T) {
	cfg := config.Default()
	cfg.Stub.Port = "18080"
	srv := BuildStubServer(cfg)
	assert.Equal(t, ":18080", srv.Addr)

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, 200, rr.Code)
	assert.Contains(t, rr.Body.String(), `"service":"docgen-stub"`)
}
