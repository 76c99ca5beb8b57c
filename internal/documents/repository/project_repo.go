package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/GoSim-25-26J-441/docgen-client/internal/documents/domain"
	"github.com/GoSim-25-26J-441/docgen-client/internal/documents/service"
)

// ProjectService is the remote side of the repository. *http.Client
// implements it.
type ProjectService interface {
	ListProjects(ctx context.Context) ([]domain.Project, error)
	GetProject(ctx context.Context, id int64) (*domain.Project, error)
	CreateProject(ctx context.Context, spec domain.CreateProjectSpec) (*domain.Project, error)
	UpdateProject(ctx context.Context, id int64, patch domain.ProjectPatch) (*domain.Project, error)
	DeleteProject(ctx context.Context, id int64) error
}

// ProjectRepository holds the canonical in-memory copy of the user's
// projects and the currently active project. All reads return copies.
type ProjectRepository struct {
	svc ProjectService

	mu       sync.RWMutex
	projects []domain.Project
	active   *domain.Project
}

// NewProjectRepository creates an empty repository backed by svc.
func NewProjectRepository(svc ProjectService) *ProjectRepository {
	return &ProjectRepository{svc: svc}
}

// ListProjects replaces the local collection with the service's list.
// On failure the previous collection is kept.
func (r *ProjectRepository) ListProjects(ctx context.Context) ([]domain.Project, error) {
	logger := service.NewLogger(ctx)

	list, err := r.svc.ListProjects(ctx)
	if err != nil {
		logger.LogError("list_projects", err)
		return nil, err
	}
	for i := range list {
		list[i].SortSections()
	}

	r.mu.Lock()
	r.projects = cloneAll(list)
	r.mu.Unlock()

	logger.LogInfof("list_projects", "loaded %d projects", len(list))
	return list, nil
}

// FetchProject loads one project with its sections and makes it active.
func (r *ProjectRepository) FetchProject(ctx context.Context, id int64) (*domain.Project, error) {
	p, err := r.svc.GetProject(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch project %d: %w", id, err)
	}
	p.SortSections()

	r.mu.Lock()
	r.active = p.Clone()
	r.upsertLocked(p)
	r.mu.Unlock()

	return p.Clone(), nil
}

// CreateProject validates spec locally, creates the project remotely and
// appends it to the collection. Nothing is sent when validation fails.
func (r *ProjectRepository) CreateProject(ctx context.Context, spec domain.CreateProjectSpec) (*domain.Project, error) {
	// Validate normalizes in place; keep the caller's slice intact.
	spec.Sections = append([]domain.SectionSpec(nil), spec.Sections...)
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	p, err := r.svc.CreateProject(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	p.SortSections()

	r.mu.Lock()
	r.projects = append(r.projects, *p.Clone())
	r.mu.Unlock()

	service.NewLogger(ctx).LogInfof("create_project", "created project %d with %d sections", p.ID, len(p.Sections))
	return p.Clone(), nil
}

// UpdateProject applies a partial update. The list entry and, if it is the
// same project, the active project are replaced by the service's reply.
func (r *ProjectRepository) UpdateProject(ctx context.Context, id int64, patch domain.ProjectPatch) (*domain.Project, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	p, err := r.svc.UpdateProject(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("update project %d: %w", id, err)
	}
	p.SortSections()

	r.mu.Lock()
	defer r.mu.Unlock()

	// The update reply may omit sections; keep the ones already loaded.
	if p.Sections == nil {
		if existing := r.findLocked(id); existing != nil {
			p.Sections = append([]domain.Section(nil), existing.Sections...)
		} else if r.active != nil && r.active.ID == id {
			p.Sections = append([]domain.Section(nil), r.active.Sections...)
		}
	}
	r.upsertLocked(p)
	if r.active != nil && r.active.ID == id {
		r.active = p.Clone()
	}
	return p.Clone(), nil
}

// DeleteProject deletes remotely, then locally. Deleting an already-deleted
// project surfaces the service's not-found error.
func (r *ProjectRepository) DeleteProject(ctx context.Context, id int64) error {
	if err := r.svc.DeleteProject(ctx, id); err != nil {
		return fmt.Errorf("delete project %d: %w", id, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.projects {
		if r.projects[i].ID == id {
			r.projects = append(r.projects[:i], r.projects[i+1:]...)
			break
		}
	}
	if r.active != nil && r.active.ID == id {
		r.active = nil
	}
	return nil
}

// Refresh re-fetches a project after server-side work. While another
// project is active the result is not merged and ErrStaleSnapshot is
// returned. With no active project the snapshot only updates the
// collection.
func (r *ProjectRepository) Refresh(ctx context.Context, id int64) (*domain.Project, error) {
	if r.otherActive(id) {
		return nil, domain.ErrStaleSnapshot
	}

	p, err := r.svc.GetProject(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("refresh project %d: %w", id, err)
	}
	p.SortSections()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != nil {
		if r.active.ID != id {
			return nil, domain.ErrStaleSnapshot
		}
		r.active = p.Clone()
	}
	r.upsertLocked(p)
	return p.Clone(), nil
}

// ReplaceSection swaps a single section of the active project for sec. The
// project's other fields and sibling sections are left untouched.
func (r *ProjectRepository) ReplaceSection(sec domain.Section) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active == nil || r.active.ID != sec.ProjectID {
		return domain.ErrStaleSnapshot
	}
	if !replaceIn(r.active, sec) {
		return fmt.Errorf("section %d: %w", sec.ID, domain.ErrNotFound)
	}
	r.active.SortSections()
	if p := r.findLocked(sec.ProjectID); p != nil && replaceIn(p, sec) {
		p.SortSections()
	}
	return nil
}

// Active returns a copy of the active project, or nil.
func (r *ProjectRepository) Active() *domain.Project {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active.Clone()
}

// IsActive reports whether id is the active project.
func (r *ProjectRepository) IsActive(id int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active != nil && r.active.ID == id
}

func (r *ProjectRepository) otherActive(id int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active != nil && r.active.ID != id
}

// Projects returns a copy of the local collection.
func (r *ProjectRepository) Projects() []domain.Project {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneAll(r.projects)
}

// Project returns a copy of a project from the active slot or the
// collection.
func (r *ProjectRepository) Project(id int64) (*domain.Project, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.active != nil && r.active.ID == id {
		return r.active.Clone(), true
	}
	if p := r.findLocked(id); p != nil {
		return p.Clone(), true
	}
	return nil, false
}

// ProjectOfSection finds the active project's section.
func (r *ProjectRepository) ProjectOfSection(sectionID int64) (*domain.Project, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.active == nil {
		return nil, false
	}
	if _, ok := r.active.Section(sectionID); !ok {
		return nil, false
	}
	return r.active.Clone(), true
}

// SetActive makes a project from the collection active without a fetch.
func (r *ProjectRepository) SetActive(id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.findLocked(id)
	if p == nil {
		return fmt.Errorf("project %d: %w", id, domain.ErrNotFound)
	}
	r.active = p.Clone()
	return nil
}

// ClearActive navigates away from the active project.
func (r *ProjectRepository) ClearActive() {
	r.mu.Lock()
	r.active = nil
	r.mu.Unlock()
}

// IsNotFound reports whether err is a not-found failure.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}

func (r *ProjectRepository) findLocked(id int64) *domain.Project {
	for i := range r.projects {
		if r.projects[i].ID == id {
			return &r.projects[i]
		}
	}
	return nil
}

func (r *ProjectRepository) upsertLocked(p *domain.Project) {
	if existing := r.findLocked(p.ID); existing != nil {
		*existing = *p.Clone()
		return
	}
	r.projects = append(r.projects, *p.Clone())
}

func replaceIn(p *domain.Project, sec domain.Section) bool {
	for i := range p.Sections {
		if p.Sections[i].ID == sec.ID {
			p.Sections[i] = sec
			return true
		}
	}
	return false
}

func cloneAll(list []domain.Project) []domain.Project {
	out := make([]domain.Project, len(list))
	for i := range list {
		out[i] = *list[i].Clone()
	}
	return out
}
