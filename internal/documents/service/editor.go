package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/time/rate"

	"github.com/GoSim-25-26J-441/docgen-client/internal/documents/domain"
)

// SectionService persists section updates.
type SectionService interface {
	UpdateSection(ctx context.Context, id int64, patch domain.SectionPatch) (*domain.Section, error)
}

// SectionStore is the committed layer the editor writes single sections to.
type SectionStore interface {
	ReplaceSection(sec domain.Section) error
	ProjectOfSection(sectionID int64) (*domain.Project, bool)
}

// DirtySection is a section whose last save failed.
type DirtySection struct {
	SectionID int64
	Patch     domain.SectionPatch
	Err       error
}

// EditorOptions configures the autosave throttle.
type EditorOptions struct {
	SaveRate  float64 // saves per second
	SaveBurst int
}

// SectionEditor owns the editor buffer of individual sections and their
// persistence. A failed save keeps the local draft and marks the section
// dirty; committed state only ever changes on success.
type SectionEditor struct {
	svc     SectionService
	store   SectionStore
	limiter *rate.Limiter

	mu     sync.Mutex
	drafts map[int64]string
	dirty  map[int64]*DirtySection
}

func NewSectionEditor(svc SectionService, store SectionStore, opts EditorOptions) *SectionEditor {
	if opts.SaveRate <= 0 {
		opts.SaveRate = 5
	}
	if opts.SaveBurst <= 0 {
		opts.SaveBurst = 5
	}
	return &SectionEditor{
		svc:     svc,
		store:   store,
		limiter: rate.NewLimiter(rate.Limit(opts.SaveRate), opts.SaveBurst),
		drafts:  make(map[int64]string),
		dirty:   make(map[int64]*DirtySection),
	}
}

// Edit records content typed into the editor without persisting it.
func (e *SectionEditor) Edit(sectionID int64, content string) {
	e.mu.Lock()
	e.drafts[sectionID] = content
	e.mu.Unlock()
}

// Content returns the draft if there is one, else the committed content.
func (e *SectionEditor) Content(sectionID int64) (string, bool) {
	e.mu.Lock()
	draft, ok := e.drafts[sectionID]
	e.mu.Unlock()
	if ok {
		return draft, true
	}
	p, ok := e.store.ProjectOfSection(sectionID)
	if !ok {
		return "", false
	}
	sec, _ := p.Section(sectionID)
	return sec.Content, true
}

// Save persists the current draft of a section.
func (e *SectionEditor) Save(ctx context.Context, sectionID int64) (*domain.Section, error) {
	e.mu.Lock()
	draft, ok := e.drafts[sectionID]
	e.mu.Unlock()
	if !ok {
		return nil, domain.NewValidationError("content", fmt.Sprintf("no unsaved changes for section %d", sectionID))
	}
	return e.UpdateSection(ctx, sectionID, domain.SectionPatch{Content: &draft})
}

// UpdateSection persists a partial update and replaces only that section in
// the committed layer.
func (e *SectionEditor) UpdateSection(ctx context.Context, sectionID int64, patch domain.SectionPatch) (*domain.Section, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	logger := NewLogger(ctx)

	if patch.Content != nil {
		e.Edit(sectionID, *patch.Content)
	}

	if err := e.limiter.Wait(ctx); err != nil {
		e.markDirty(sectionID, patch, err)
		return nil, fmt.Errorf("update section %d: %w", sectionID, err)
	}

	sec, err := e.svc.UpdateSection(ctx, sectionID, patch)
	if err != nil {
		e.markDirty(sectionID, patch, err)
		logger.LogWarnf("update_section", "section %d kept as unsaved draft: %v", sectionID, err)
		return nil, fmt.Errorf("update section %d: %w", sectionID, err)
	}
	recordSectionSave()

	e.mu.Lock()
	delete(e.dirty, sectionID)
	// A newer edit made while the request was in flight stays as draft.
	if patch.Content != nil && e.drafts[sectionID] == *patch.Content {
		delete(e.drafts, sectionID)
	}
	e.mu.Unlock()

	if err := e.store.ReplaceSection(*sec); err != nil {
		if errors.Is(err, domain.ErrStaleSnapshot) {
			// Saved, but the user has moved to another project.
			logger.LogDebugf("update_section", "section %d saved for inactive project %d", sec.ID, sec.ProjectID)
			return sec, nil
		}
		return sec, err
	}
	return sec, nil
}

func (e *SectionEditor) markDirty(sectionID int64, patch domain.SectionPatch, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if prev, ok := e.dirty[sectionID]; ok {
		patch = mergePatch(prev.Patch, patch)
	}
	e.dirty[sectionID] = &DirtySection{SectionID: sectionID, Patch: patch, Err: err}
}

// Dirty lists sections with unsynced changes, ordered by id.
func (e *SectionEditor) Dirty() []DirtySection {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]DirtySection, 0, len(e.dirty))
	for _, d := range e.dirty {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SectionID < out[j].SectionID })
	return out
}

// IsDirty reports whether a section has unsynced changes.
func (e *SectionEditor) IsDirty(sectionID int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.dirty[sectionID]
	return ok
}

// Flush retries every dirty section once, using the latest draft content.
// Failures stay dirty and are returned joined.
func (e *SectionEditor) Flush(ctx context.Context) error {
	var errs []error
	for _, d := range e.Dirty() {
		patch := d.Patch
		e.mu.Lock()
		if draft, ok := e.drafts[d.SectionID]; ok {
			patch.Content = &draft
		}
		e.mu.Unlock()

		if _, err := e.UpdateSection(ctx, d.SectionID, patch); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops the local draft and dirty mark of a section.
func (e *SectionEditor) Discard(sectionID int64) {
	e.mu.Lock()
	delete(e.drafts, sectionID)
	delete(e.dirty, sectionID)
	e.mu.Unlock()
}

func mergePatch(old, newer domain.SectionPatch) domain.SectionPatch {
	if newer.Title == nil {
		newer.Title = old.Title
	}
	if newer.Content == nil {
		newer.Content = old.Content
	}
	if newer.Order == nil {
		newer.Order = old.Order
	}
	return newer
}
