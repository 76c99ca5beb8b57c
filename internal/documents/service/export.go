package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/GoSim-25-26J-441/docgen-client/internal/documents/domain"
)

// ExportService downloads rendered documents.
type ExportService interface {
	ExportDocument(ctx context.Context, projectID int64, kind domain.DocumentKind) (*domain.Artifact, error)
}

// ExportCoordinator turns a project into a downloadable artifact. Exports
// share the workflow tracker so an export of a project is busy-guarded like
// any other operation.
type ExportCoordinator struct {
	svc     ExportService
	tracker *Tracker
	pub     Publisher
}

func NewExportCoordinator(svc ExportService, tracker *Tracker, pub Publisher) *ExportCoordinator {
	if tracker == nil {
		tracker = NewTracker()
	}
	return &ExportCoordinator{svc: svc, tracker: tracker, pub: pub}
}

// CanExport reports whether a project has anything worth exporting.
func (e *ExportCoordinator) CanExport(p *domain.Project) bool {
	return p.HasContent()
}

// ExportProject requests the binary payload for the project's kind. The
// artifact is named after the project title.
func (e *ExportCoordinator) ExportProject(ctx context.Context, p *domain.Project) (*domain.Artifact, error) {
	if p == nil {
		return nil, domain.NewValidationError("project", "no project selected")
	}
	if !p.Kind.Valid() {
		return nil, domain.NewValidationError("document_type", fmt.Sprintf("cannot export kind %q", p.Kind))
	}

	key := OperationKey{Kind: domain.OpExport, ID: p.ID}
	if !e.tracker.Begin(key) {
		return nil, fmt.Errorf("%s: %w", key, domain.ErrBusy)
	}
	e.publish(ctx, key, p.ID)
	recordExportCall()

	art, err := e.svc.ExportDocument(ctx, p.ID, p.Kind)
	if err != nil {
		NewLogger(ctx).LogError("export_project", err)
		e.finish(ctx, key, p.ID, err)
		return nil, err
	}

	art.Filename = p.Title + "." + p.Kind.Extension()
	if art.ContentType == "" {
		art.ContentType = p.Kind.Info().ContentType
	}
	e.finish(ctx, key, p.ID, nil)
	NewLogger(ctx).LogInfof("export_project", "exported project %d as %s (%d bytes)", p.ID, art.Filename, len(art.Data))
	return art, nil
}

// Save writes the artifact into dir and returns the final path. The file
// only appears once its full content has been written.
func (e *ExportCoordinator) Save(dir string, art *domain.Artifact) (string, error) {
	if art == nil || art.Filename == "" {
		return "", domain.NewValidationError("artifact", "nothing to save")
	}
	if dir == "" {
		dir = "."
	}
	final := filepath.Join(dir, safeFilename(art.Filename))

	tmp, err := os.CreateTemp(dir, ".docgen-export-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(art.Data); err != nil {
		tmp.Close()
		cleanup()
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", fmt.Errorf("failed to close export: %w", err)
	}
	if err := os.Rename(tmpName, final); err != nil {
		cleanup()
		return "", fmt.Errorf("failed to move export into place: %w", err)
	}
	return final, nil
}

// State returns the export state of a project.
func (e *ExportCoordinator) State(projectID int64) domain.OperationState {
	return e.tracker.Snapshot(OperationKey{Kind: domain.OpExport, ID: projectID})
}

func (e *ExportCoordinator) finish(ctx context.Context, key OperationKey, projectID int64, err error) {
	if ferr := e.tracker.Finish(key, err); ferr != nil {
		NewLogger(ctx).LogError("finish_export", ferr)
		return
	}
	e.publish(ctx, key, projectID)
}

func (e *ExportCoordinator) publish(ctx context.Context, key OperationKey, projectID int64) {
	publishState(ctx, e.pub, e.tracker.Snapshot(key), projectID)
}

func safeFilename(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '_'
		}
		return r
	}, name)
	if name == "" || name == "." || name == ".." {
		return "export"
	}
	return name
}
