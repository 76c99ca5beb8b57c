package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/docgen-client/internal/documents/domain"
)

// ErrClosed is returned by operations whose response arrived after Close.
// Such responses are never merged.
var ErrClosed = errors.New("workflow controller closed")

const (
	DefaultProgressInterval = 500 * time.Millisecond
	DefaultSectionCount     = 5
)

// GenerationService is the remote generation API.
type GenerationService interface {
	SuggestOutline(ctx context.Context, req domain.OutlineRequest) ([]string, error)
	GenerateContent(ctx context.Context, projectID int64) error
	RefineSection(ctx context.Context, sectionID int64, instruction string) (*domain.Refinement, error)
}

// ProjectStore is the part of the project repository the workflow needs.
type ProjectStore interface {
	CreateProject(ctx context.Context, spec domain.CreateProjectSpec) (*domain.Project, error)
	Refresh(ctx context.Context, id int64) (*domain.Project, error)
	Project(id int64) (*domain.Project, bool)
	ProjectOfSection(sectionID int64) (*domain.Project, bool)
}

// Publisher receives a progress event on every workflow state change.
type Publisher interface {
	Publish(ctx context.Context, event domain.ProgressEvent) error
}

// WorkflowOptions configures a Controller.
type WorkflowOptions struct {
	ProgressInterval    time.Duration
	DefaultSectionCount int
}

// Controller runs outline suggestion, bulk generation and refinement. Each
// operation instance has a busy flag; a second trigger while one is in
// flight fails with domain.ErrBusy and sends nothing.
type Controller struct {
	gen     GenerationService
	store   ProjectStore
	pub     Publisher
	tracker *Tracker
	draft   *OutlineDraft
	opts    WorkflowOptions

	mu           sync.Mutex
	instructions map[int64]string

	done      chan struct{}
	closeOnce sync.Once
}

func NewController(gen GenerationService, store ProjectStore, pub Publisher, tracker *Tracker, opts WorkflowOptions) *Controller {
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = DefaultProgressInterval
	}
	if opts.DefaultSectionCount <= 0 {
		opts.DefaultSectionCount = DefaultSectionCount
	}
	if tracker == nil {
		tracker = NewTracker()
	}
	return &Controller{
		gen:          gen,
		store:        store,
		pub:          pub,
		tracker:      tracker,
		draft:        NewOutlineDraft(),
		opts:         opts,
		instructions: make(map[int64]string),
		done:         make(chan struct{}),
	}
}

// Draft returns the outline draft being assembled.
func (c *Controller) Draft() *OutlineDraft {
	return c.draft
}

// SuggestOutline replaces the draft's sections with titles suggested for
// its main topic. On failure the draft is left as it was.
func (c *Controller) SuggestOutline(ctx context.Context, count int) ([]string, error) {
	topic := c.draft.MainTopic()
	if topic == "" {
		return nil, domain.NewValidationError("main_topic", "must not be empty")
	}
	if count <= 0 {
		count = c.opts.DefaultSectionCount
	}

	key := OperationKey{Kind: domain.OpOutline}
	if err := c.begin(ctx, key, 0); err != nil {
		return nil, err
	}

	titles, err := c.gen.SuggestOutline(ctx, domain.OutlineRequest{
		MainTopic:   topic,
		Kind:        c.draft.Kind(),
		NumSections: count,
	})
	if err != nil {
		c.finish(ctx, key, 0, err)
		return nil, err
	}
	if c.closed() {
		c.finish(ctx, key, 0, ErrClosed)
		return nil, ErrClosed
	}

	c.draft.ReplaceTitles(titles)
	c.finish(ctx, key, 0, nil)
	NewLogger(ctx).LogInfof("suggest_outline", "draft now has %d sections", len(titles))
	return titles, nil
}

// SubmitDraft creates a project from the draft and resets the draft.
func (c *Controller) SubmitDraft(ctx context.Context) (*domain.Project, error) {
	p, err := c.store.CreateProject(ctx, c.draft.Spec())
	if err != nil {
		return nil, err
	}
	c.draft.Reset()
	return p, nil
}

// GenerateContent asks the service to fill every section of a project, then
// publishes a stepped progress estimate and re-fetches the project. If the
// re-fetch fails the returned *domain.RefreshError means the generation
// itself succeeded.
func (c *Controller) GenerateContent(ctx context.Context, projectID int64) error {
	key := OperationKey{Kind: domain.OpGenerate, ID: projectID}
	if err := c.begin(ctx, key, projectID); err != nil {
		return err
	}
	recordGenerateCall()
	logger := NewLogger(ctx)

	// unknown projects get one step; known empty ones re-fetch at once
	steps := 1
	if p, ok := c.store.Project(projectID); ok {
		steps = len(p.Sections)
	}

	if err := c.gen.GenerateContent(ctx, projectID); err != nil {
		logger.LogError("generate_content", err)
		c.finish(ctx, key, projectID, err)
		return err
	}

	if steps > 0 {
		if err := c.estimate(ctx, key, projectID, steps); err != nil {
			c.finish(ctx, key, projectID, err)
			return err
		}
	} else if c.closed() {
		c.finish(ctx, key, projectID, ErrClosed)
		return ErrClosed
	}

	if _, err := c.store.Refresh(ctx, projectID); err != nil {
		if errors.Is(err, domain.ErrStaleSnapshot) {
			logger.LogDebugf("generate_content", "project %d no longer active, skipping merge", projectID)
			c.finish(ctx, key, projectID, nil)
			return nil
		}
		rerr := &domain.RefreshError{ProjectID: projectID, Err: err}
		c.finish(ctx, key, projectID, rerr)
		return rerr
	}

	c.finish(ctx, key, projectID, nil)
	logger.LogInfof("generate_content", "project %d generated (%d sections)", projectID, steps)
	return nil
}

// estimate advances progress from 0 to 100 in equal steps. It is decorative:
// completion is decided by the re-fetch that follows.
func (c *Controller) estimate(ctx context.Context, key OperationKey, projectID int64, steps int) error {
	timer := time.NewTimer(c.opts.ProgressInterval)
	defer timer.Stop()

	for i := 1; i <= steps; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return ErrClosed
		case <-timer.C:
		}
		c.tracker.SetProgress(key, float64(i)*100/float64(steps))
		c.publish(ctx, key, projectID)
		timer.Reset(c.opts.ProgressInterval)
	}
	return nil
}

// RefineSection rewrites one section following instruction. The
// instruction is kept until the refinement succeeds so a failed attempt
// can be retried as-is.
func (c *Controller) RefineSection(ctx context.Context, sectionID int64, instruction string) (*domain.Refinement, error) {
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return nil, domain.NewValidationError("prompt", "refinement instruction must not be empty")
	}

	var projectID int64
	if p, ok := c.store.ProjectOfSection(sectionID); ok {
		projectID = p.ID
	}

	key := OperationKey{Kind: domain.OpRefine, ID: sectionID}
	if err := c.begin(ctx, key, projectID); err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.instructions[sectionID] = instruction
	c.mu.Unlock()
	recordRefineCall()

	ref, err := c.gen.RefineSection(ctx, sectionID, instruction)
	if err != nil {
		NewLogger(ctx).LogError("refine_section", err)
		c.finish(ctx, key, projectID, err)
		return nil, err
	}
	if c.closed() {
		c.finish(ctx, key, projectID, ErrClosed)
		return nil, ErrClosed
	}

	c.mu.Lock()
	delete(c.instructions, sectionID)
	c.mu.Unlock()

	if projectID != 0 {
		if _, err := c.store.Refresh(ctx, projectID); err != nil && !errors.Is(err, domain.ErrStaleSnapshot) {
			rerr := &domain.RefreshError{ProjectID: projectID, Err: err}
			c.finish(ctx, key, projectID, rerr)
			return ref, rerr
		}
	}

	c.finish(ctx, key, projectID, nil)
	return ref, nil
}

// Instruction returns the pending refinement instruction of a section.
func (c *Controller) Instruction(sectionID int64) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.instructions[sectionID]
}

// State returns the progress state of one operation instance.
func (c *Controller) State(kind domain.OperationKind, id int64) domain.OperationState {
	return c.tracker.Snapshot(OperationKey{Kind: kind, ID: id})
}

// Acknowledge clears a finished operation's progress and error.
func (c *Controller) Acknowledge(kind domain.OperationKind, id int64) {
	c.tracker.Acknowledge(OperationKey{Kind: kind, ID: id})
}

// HasContent reports whether the latest snapshot of a project has any
// generated content.
func (c *Controller) HasContent(projectID int64) bool {
	p, ok := c.store.Project(projectID)
	return ok && p.HasContent()
}

// Close detaches the controller. Running estimates stop and responses that
// arrive afterwards are dropped. Nothing is sent to the service.
func (c *Controller) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Controller) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Controller) begin(ctx context.Context, key OperationKey, projectID int64) error {
	if c.closed() {
		return ErrClosed
	}
	if !c.tracker.Begin(key) {
		return fmt.Errorf("%s: %w", key, domain.ErrBusy)
	}
	c.publish(ctx, key, projectID)
	return nil
}

func (c *Controller) finish(ctx context.Context, key OperationKey, projectID int64, err error) {
	if ferr := c.tracker.Finish(key, err); ferr != nil {
		NewLogger(ctx).LogError("finish_operation", ferr)
		return
	}
	c.publish(ctx, key, projectID)
}

func (c *Controller) publish(ctx context.Context, key OperationKey, projectID int64) {
	publishState(ctx, c.pub, c.tracker.Snapshot(key), projectID)
}

func publishState(ctx context.Context, pub Publisher, st domain.OperationState, projectID int64) {
	if pub == nil {
		return
	}
	ev := domain.ProgressEvent{
		Kind:      st.Kind,
		TargetID:  st.TargetID,
		ProjectID: projectID,
		Status:    st.Status,
		Progress:  st.Progress,
		At:        time.Now().UTC(),
	}
	if st.Err != nil {
		ev.Error = st.Err.Error()
	}
	if err := pub.Publish(context.WithoutCancel(ctx), ev); err != nil {
		NewLogger(ctx).LogWarnf("publish_progress", "%s/%d: %v", st.Kind, st.TargetID, err)
	}
}
