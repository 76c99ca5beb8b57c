package service_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/docgen-client/internal/documents/domain"
	dochttp "github.com/GoSim-25-26J-441/docgen-client/internal/documents/http"
	"github.com/GoSim-25-26J-441/docgen-client/internal/documents/repository"
	"github.com/GoSim-25-26J-441/docgen-client/internal/documents/service"
)

var fastOpts = service.WorkflowOptions{ProgressInterval: time.Millisecond}

// blockingGen holds GenerateContent until release is closed.
type blockingGen struct {
	*dochttp.Client
	calls   atomic.Int32
	release chan struct{}
}

func (b *blockingGen) GenerateContent(ctx context.Context, projectID int64) error {
	b.calls.Add(1)
	<-b.release
	return b.Client.GenerateContent(ctx, projectID)
}

// gatedRefiner holds RefineSection for a section until its gate yields.
// A non-nil value fails the call instead of forwarding it.
type gatedRefiner struct {
	*dochttp.Client
	mu    sync.Mutex
	calls map[int64]int
	gates map[int64]chan error
}

func newGatedRefiner(client *dochttp.Client, sectionIDs ...int64) *gatedRefiner {
	g := &gatedRefiner{Client: client, calls: make(map[int64]int), gates: make(map[int64]chan error)}
	for _, id := range sectionIDs {
		g.gates[id] = make(chan error)
	}
	return g
}

func (g *gatedRefiner) RefineSection(ctx context.Context, sectionID int64, instruction string) (*domain.Refinement, error) {
	g.mu.Lock()
	g.calls[sectionID]++
	gate := g.gates[sectionID]
	g.mu.Unlock()
	if gate != nil {
		if err := <-gate; err != nil {
			return nil, err
		}
	}
	return g.Client.RefineSection(ctx, sectionID, instruction)
}

func (g *gatedRefiner) callsFor(sectionID int64) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[sectionID]
}

// sectionlessStore reports every known project as having no sections.
type sectionlessStore struct {
	*repository.ProjectRepository
}

func (s sectionlessStore) Project(id int64) (*domain.Project, bool) {
	p, ok := s.ProjectRepository.Project(id)
	if ok {
		p.Sections = nil
	}
	return p, ok
}

// countingGen counts outline requests.
type countingGen struct {
	*dochttp.Client
	outlines atomic.Int32
}

func (c *countingGen) SuggestOutline(ctx context.Context, req domain.OutlineRequest) ([]string, error) {
	c.outlines.Add(1)
	return c.Client.SuggestOutline(ctx, req)
}

// refreshFailingStore lets generation succeed but fails the re-fetch.
type refreshFailingStore struct {
	*repository.ProjectRepository
}

func (s refreshFailingStore) Refresh(ctx context.Context, id int64) (*domain.Project, error) {
	return nil, &domain.TransportError{Op: "get_project", StatusCode: 503, Message: "unavailable"}
}

func TestController_SuggestOutline(t *testing.T) {
	ctx := context.Background()

	t.Run("blank topic is rejected without a request", func(t *testing.T) {
		env := newTestEnv(t)
		gen := &countingGen{Client: env.client}
		ctrl := service.NewController(gen, env.repo, nil, nil, fastOpts)
		ctrl.Draft().SetMainTopic("   ")

		_, err := ctrl.SuggestOutline(ctx, 3)
		assert.True(t, domain.IsValidation(err))
		assert.Zero(t, gen.outlines.Load())
	})

	t.Run("default count fills the draft and submits", func(t *testing.T) {
		env := newTestEnv(t)
		ctrl := service.NewController(env.client, env.repo, nil, nil, fastOpts)
		draft := ctrl.Draft()
		draft.SetTitle("Q4 Report")
		draft.SetMainTopic("Quarterly results")
		require.NoError(t, draft.SetKind(domain.KindSlideDeck))
		draft.AddSection("to be replaced")

		titles, err := ctrl.SuggestOutline(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, titles, service.DefaultSectionCount)
		assert.Equal(t, titles, draft.Sections())
		assert.Equal(t, "Title Slide", titles[0])
		assert.Equal(t, domain.StatusSucceeded, ctrl.State(domain.OpOutline, 0).Status)

		p, err := ctrl.SubmitDraft(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.KindSlideDeck, p.Kind)
		require.Len(t, p.Sections, 5)
		for i, s := range p.Sections {
			assert.Equal(t, titles[i], s.Title)
			assert.Equal(t, i, s.Order)
		}
		assert.Empty(t, draft.Sections(), "draft reset after submit")
	})

	t.Run("failure leaves the draft untouched", func(t *testing.T) {
		env := newTestEnv(t)
		ctrl := service.NewController(deadClient(t), env.repo, nil, nil, fastOpts)
		ctrl.Draft().SetMainTopic("Quarterly results")
		ctrl.Draft().AddSection("Intro")

		_, err := ctrl.SuggestOutline(ctx, 4)
		assert.True(t, domain.IsTransport(err))
		assert.Equal(t, []string{"Intro"}, ctrl.Draft().Sections())

		st := ctrl.State(domain.OpOutline, 0)
		assert.Equal(t, domain.StatusFailed, st.Status)
		assert.Error(t, st.Err)

		ctrl.Acknowledge(domain.OpOutline, 0)
		st = ctrl.State(domain.OpOutline, 0)
		assert.Equal(t, domain.StatusIdle, st.Status)
		assert.NoError(t, st.Err)
	})
}

func TestController_GenerateContent(t *testing.T) {
	ctx := context.Background()

	t.Run("fills every section and reports progress", func(t *testing.T) {
		env := newTestEnv(t)
		p := env.createQ4(t)
		pub := &recordingPublisher{}
		ctrl := service.NewController(env.client, env.repo, pub, nil, fastOpts)
		assert.False(t, ctrl.HasContent(p.ID))

		require.NoError(t, ctrl.GenerateContent(ctx, p.ID))

		active := env.repo.Active()
		require.Len(t, active.Sections, 3)
		for _, s := range active.Sections {
			assert.NotEmpty(t, s.Content, s.Title)
		}
		assert.True(t, ctrl.HasContent(p.ID))

		st := ctrl.State(domain.OpGenerate, p.ID)
		assert.Equal(t, domain.StatusSucceeded, st.Status)
		assert.Equal(t, float64(100), st.Progress)

		events := pub.Events()
		require.NotEmpty(t, events)
		assert.Equal(t, domain.StatusRunning, events[0].Status)
		assert.Equal(t, domain.StatusSucceeded, events[len(events)-1].Status)
		var last float64
		steps := 0
		for _, ev := range events {
			if ev.Status == domain.StatusRunning && ev.Progress > 0 {
				assert.Greater(t, ev.Progress, last)
				last = ev.Progress
				steps++
			}
		}
		assert.Equal(t, 3, steps)
		assert.Equal(t, float64(100), last)
	})

	t.Run("newly created project is refreshed without being opened", func(t *testing.T) {
		env := newTestEnv(t)
		p, err := env.repo.CreateProject(ctx, domain.CreateProjectSpec{
			Title:     "Q4 Report",
			Kind:      domain.KindDocument,
			MainTopic: "Quarterly results",
			Sections:  []domain.SectionSpec{{Title: "Summary"}, {Title: "Revenue"}},
		})
		require.NoError(t, err)
		require.Nil(t, env.repo.Active())
		ctrl := service.NewController(env.client, env.repo, nil, nil, fastOpts)

		require.NoError(t, ctrl.GenerateContent(ctx, p.ID))
		assert.True(t, ctrl.HasContent(p.ID))
		local, ok := env.repo.Project(p.ID)
		require.True(t, ok)
		for _, s := range local.Sections {
			assert.NotEmpty(t, s.Content, s.Title)
		}
		assert.Nil(t, env.repo.Active(), "refresh does not open the project")
	})

	t.Run("project without sections is re-fetched at once", func(t *testing.T) {
		env := newTestEnv(t)
		p := env.createQ4(t)
		pub := &recordingPublisher{}
		ctrl := service.NewController(env.client, sectionlessStore{env.repo}, pub, nil,
			service.WorkflowOptions{ProgressInterval: time.Hour})

		result := make(chan error, 1)
		go func() { result <- ctrl.GenerateContent(ctx, p.ID) }()
		select {
		case err := <-result:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("generation waited for a progress step")
		}

		st := ctrl.State(domain.OpGenerate, p.ID)
		assert.Equal(t, domain.StatusSucceeded, st.Status)
		assert.Equal(t, float64(100), st.Progress)
		for _, ev := range pub.Events() {
			if ev.Status == domain.StatusRunning {
				assert.Zero(t, ev.Progress)
			}
		}
		assert.True(t, env.repo.Active().HasContent())
	})

	t.Run("second trigger while in flight sends nothing", func(t *testing.T) {
		env := newTestEnv(t)
		p := env.createQ4(t)
		gen := &blockingGen{Client: env.client, release: make(chan struct{})}
		ctrl := service.NewController(gen, env.repo, nil, nil, fastOpts)

		result := make(chan error, 1)
		go func() { result <- ctrl.GenerateContent(ctx, p.ID) }()

		require.Eventually(t, func() bool { return gen.calls.Load() == 1 }, time.Second, time.Millisecond)

		err := ctrl.GenerateContent(ctx, p.ID)
		assert.ErrorIs(t, err, domain.ErrBusy)

		close(gen.release)
		require.NoError(t, <-result)
		assert.Equal(t, int32(1), gen.calls.Load())

		// finished operations can run again
		require.NoError(t, ctrl.GenerateContent(ctx, p.ID))
		assert.Equal(t, int32(2), gen.calls.Load())
	})

	t.Run("initial failure aborts before any progress", func(t *testing.T) {
		env := newTestEnv(t)
		p := env.createQ4(t)
		pub := &recordingPublisher{}
		ctrl := service.NewController(deadClient(t), env.repo, pub, nil, fastOpts)

		err := ctrl.GenerateContent(ctx, p.ID)
		assert.True(t, domain.IsTransport(err))
		assert.False(t, env.repo.Active().HasContent())

		for _, ev := range pub.Events() {
			assert.Zero(t, ev.Progress)
		}
		assert.Equal(t, domain.StatusFailed, ctrl.State(domain.OpGenerate, p.ID).Status)
	})

	t.Run("refresh failure keeps generation success", func(t *testing.T) {
		env := newTestEnv(t)
		p := env.createQ4(t)
		ctrl := service.NewController(env.client, refreshFailingStore{env.repo}, nil, nil, fastOpts)

		err := ctrl.GenerateContent(ctx, p.ID)
		var rerr *domain.RefreshError
		require.ErrorAs(t, err, &rerr)
		assert.Equal(t, p.ID, rerr.ProjectID)
		assert.True(t, domain.IsTransport(err))

		server, ok := env.stub.Project(p.ID)
		require.True(t, ok)
		assert.True(t, server.HasContent())
		assert.False(t, env.repo.Active().HasContent(), "nothing merged locally")

		_, err = env.repo.Refresh(ctx, p.ID)
		require.NoError(t, err)
		assert.True(t, env.repo.Active().HasContent())
	})

	t.Run("result for a project navigated away from is ignored", func(t *testing.T) {
		env := newTestEnv(t)
		first := env.createQ4(t)
		second := env.createQ4(t)
		require.Equal(t, second.ID, env.repo.Active().ID)

		ctrl := service.NewController(env.client, env.repo, nil, nil, fastOpts)
		require.NoError(t, ctrl.GenerateContent(ctx, first.ID))

		assert.Equal(t, second.ID, env.repo.Active().ID)
		assert.False(t, env.repo.Active().HasContent())
	})

	t.Run("close stops the estimate and drops the result", func(t *testing.T) {
		env := newTestEnv(t)
		p := env.createQ4(t)
		ctrl := service.NewController(env.client, env.repo, nil, nil, service.WorkflowOptions{ProgressInterval: time.Hour})

		result := make(chan error, 1)
		go func() { result <- ctrl.GenerateContent(ctx, p.ID) }()

		require.Eventually(t, func() bool {
			server, _ := env.stub.Project(p.ID)
			return server.HasContent()
		}, time.Second, time.Millisecond)
		ctrl.Close()

		select {
		case err := <-result:
			assert.ErrorIs(t, err, service.ErrClosed)
		case <-time.After(time.Second):
			t.Fatal("generation did not stop after close")
		}
		assert.False(t, env.repo.Active().HasContent())

		assert.ErrorIs(t, ctrl.GenerateContent(ctx, p.ID), service.ErrClosed)
	})
}

func TestController_RefineSection(t *testing.T) {
	ctx := context.Background()

	t.Run("unreachable service keeps instruction and content", func(t *testing.T) {
		env := newTestEnv(t)
		ctrl := service.NewController(deadClient(t), env.repo, nil, nil, fastOpts)

		_, err := ctrl.RefineSection(ctx, 42, "make it shorter")
		var terr *domain.TransportError
		require.True(t, errors.As(err, &terr))
		assert.Equal(t, "make it shorter", ctrl.Instruction(42))
		assert.Equal(t, domain.StatusFailed, ctrl.State(domain.OpRefine, 42).Status)
	})

	t.Run("failure against a loaded project changes nothing", func(t *testing.T) {
		env := newTestEnv(t)
		p := env.createQ4(t)
		require.NoError(t, service.NewController(env.client, env.repo, nil, nil, fastOpts).GenerateContent(ctx, p.ID))
		before := env.repo.Active()

		ctrl := service.NewController(deadClient(t), env.repo, nil, nil, fastOpts)
		sectionID := before.Sections[1].ID
		_, err := ctrl.RefineSection(ctx, sectionID, "add numbers")
		assert.True(t, domain.IsTransport(err))
		assert.Equal(t, "add numbers", ctrl.Instruction(sectionID))
		assert.Equal(t, before, env.repo.Active())
	})

	t.Run("success refreshes the project and clears the instruction", func(t *testing.T) {
		env := newTestEnv(t)
		p := env.createQ4(t)
		ctrl := service.NewController(env.client, env.repo, nil, nil, fastOpts)
		require.NoError(t, ctrl.GenerateContent(ctx, p.ID))
		before := env.repo.Active()
		target := before.Sections[0]

		ref, err := ctrl.RefineSection(ctx, target.ID, "  more formal  ")
		require.NoError(t, err)
		assert.Equal(t, "more formal", ref.Prompt)
		assert.Equal(t, target.Content, ref.PreviousContent)
		assert.Empty(t, ctrl.Instruction(target.ID))

		after := env.repo.Active()
		assert.Equal(t, ref.NewContent, after.Sections[0].Content)
		assert.Contains(t, after.Sections[0].Content, "more formal")
		assert.Equal(t, before.Sections[1], after.Sections[1])
		assert.Equal(t, before.Sections[2], after.Sections[2])
	})

	t.Run("sections refine concurrently but each only once at a time", func(t *testing.T) {
		env := newTestEnv(t)
		p := env.createQ4(t)
		require.NoError(t, service.NewController(env.client, env.repo, nil, nil, fastOpts).GenerateContent(ctx, p.ID))
		first, second := p.Sections[0].ID, p.Sections[1].ID
		gen := newGatedRefiner(env.client, first, second)
		ctrl := service.NewController(gen, env.repo, nil, nil, fastOpts)

		firstResult := make(chan error, 1)
		secondResult := make(chan error, 1)
		go func() {
			_, err := ctrl.RefineSection(ctx, first, "make it more formal")
			firstResult <- err
		}()
		go func() {
			_, err := ctrl.RefineSection(ctx, second, "add numbers")
			secondResult <- err
		}()
		require.Eventually(t, func() bool {
			return gen.callsFor(first) == 1 && gen.callsFor(second) == 1
		}, time.Second, time.Millisecond)

		_, err := ctrl.RefineSection(ctx, first, "something else")
		assert.ErrorIs(t, err, domain.ErrBusy)
		assert.Equal(t, 1, gen.callsFor(first), "dropped trigger sends nothing")
		assert.Equal(t, "make it more formal", ctrl.Instruction(first))

		gen.gates[second] <- nil
		require.NoError(t, <-secondResult)
		assert.Empty(t, ctrl.Instruction(second))

		gen.gates[first] <- &domain.TransportError{Op: "refine_section", StatusCode: 503, Message: "unavailable"}
		assert.True(t, domain.IsTransport(<-firstResult))
		assert.Equal(t, "make it more formal", ctrl.Instruction(first))
		assert.Equal(t, domain.StatusFailed, ctrl.State(domain.OpRefine, first).Status)
		assert.Equal(t, domain.StatusSucceeded, ctrl.State(domain.OpRefine, second).Status)
	})

	t.Run("blank instruction is rejected", func(t *testing.T) {
		env := newTestEnv(t)
		ctrl := service.NewController(env.client, env.repo, nil, nil, fastOpts)
		_, err := ctrl.RefineSection(ctx, 1, " ")
		assert.True(t, domain.IsValidation(err))
	})
}

func TestController_DeleteThenFetch(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	p := env.createQ4(t)

	require.NoError(t, env.repo.DeleteProject(ctx, p.ID))
	_, err := env.repo.FetchProject(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
