package bootstrap

import (
	"context"
	"errors"
	"net/http"

	"github.com/redis/go-redis/v9"
	"k8s.io/klog/v2"

	"github.com/GoSim-25-26J-441/docgen-client/config"
	"github.com/GoSim-25-26J-441/docgen-client/internal/documents/events"
	dochttp "github.com/GoSim-25-26J-441/docgen-client/internal/documents/http"
	"github.com/GoSim-25-26J-441/docgen-client/internal/documents/repository"
	"github.com/GoSim-25-26J-441/docgen-client/internal/documents/service"
	"github.com/GoSim-25-26J-441/docgen-client/internal/documents/session"
)

// App is the explicit application context: one per process, built at
// start-up and closed at exit.
type App struct {
	Config   *config.Config
	Session  *session.Session
	Client   *dochttp.Client
	Repo     *repository.ProjectRepository
	Tracker  *service.Tracker
	Editor   *service.SectionEditor
	Workflow *service.Controller
	Exporter *service.ExportCoordinator
	Bus      *events.Bus

	// Redis and Progress are nil unless REDIS_URL is set.
	Redis    *redis.Client
	Progress *events.RedisPublisher

	closers []func() error
}

// AppOptions overrides parts of the wiring, mostly for tests.
type AppOptions struct {
	Transport http.RoundTripper
	Redis     *redis.Client
}

func NewApp(ctx context.Context, cfg *config.Config, opts AppOptions) (*App, error) {
	a := &App{
		Config:  cfg,
		Session: session.New(cfg.Service.Token),
		Bus:     events.NewBus(),
		Tracker: service.NewTracker(),
	}
	a.Session.OnInvalidate(func() {
		klog.Warning("bearer credential rejected by the service; set DOCGEN_TOKEN and retry")
	})

	a.Client = dochttp.NewClient(dochttp.Options{
		BaseURL:     cfg.Service.APIURL,
		Timeout:     cfg.Service.Timeout,
		LongTimeout: cfg.Service.LongTimeout,
		Base:        opts.Transport,
	}, a.Session)

	a.Repo = repository.NewProjectRepository(a.Client)
	a.Editor = service.NewSectionEditor(a.Client, a.Repo, service.EditorOptions{
		SaveRate:  cfg.Editor.SaveRate,
		SaveBurst: cfg.Editor.SaveBurst,
	})
	a.Workflow = service.NewController(a.Client, a.Repo, a.Bus, a.Tracker, service.WorkflowOptions{
		ProgressInterval:    cfg.Workflow.ProgressInterval,
		DefaultSectionCount: cfg.Workflow.OutlineDefaultSections,
	})
	a.Exporter = service.NewExportCoordinator(a.Client, a.Tracker, a.Bus)
	a.closers = append(a.closers, func() error {
		a.Workflow.Close()
		return nil
	})

	rdb := opts.Redis
	if rdb == nil && cfg.Events.RedisURL != "" {
		var err error
		rdb, err = OpenRedis(ctx, RedisOptions{URL: cfg.Events.RedisURL})
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, rdb.Close)
	}
	if rdb != nil {
		a.Redis = rdb
		a.Progress = events.NewRedisPublisher(rdb, cfg.Events.ChannelPrefix)
		unsubscribe := a.Bus.SubscribeAll(a.Progress.Publish)
		a.closers = append(a.closers, func() error {
			unsubscribe()
			return nil
		})
	}

	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
