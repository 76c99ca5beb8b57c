package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/GoSim-25-26J-441/docgen-client/internal/documents/domain"
	"github.com/GoSim-25-26J-441/docgen-client/internal/documents/service"
	"github.com/GoSim-25-26J-441/docgen-client/internal/documents/session"
)

const (
	DefaultTimeout = 30 * time.Second
	LongTimeout    = 3 * time.Minute
)

// Options configures a Client.
type Options struct {
	BaseURL     string
	Timeout     time.Duration
	LongTimeout time.Duration
	// Base is the underlying transport; nil means http.DefaultTransport.
	Base http.RoundTripper
}

// Client handles communication with the generation/project service.
type Client struct {
	baseURL       string
	session       *session.Session
	defaultClient *http.Client
	longClient    *http.Client // generation, refinement and export run for minutes
}

// NewClient creates a client that attaches the session's bearer credential
// to every request.
func NewClient(opts Options, sess *session.Session) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.LongTimeout <= 0 {
		opts.LongTimeout = LongTimeout
	}
	base := opts.Base
	if base == nil {
		base = http.DefaultTransport
	}
	transport := &oauth2.Transport{Source: sess, Base: base}

	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		session: sess,
		defaultClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		longClient: &http.Client{
			Timeout:   opts.LongTimeout,
			Transport: transport,
		},
	}
}

// send issues one request and returns the raw response body of a 2xx reply.
// Every other outcome is classified into the domain error taxonomy.
func (c *Client) send(ctx context.Context, hc *http.Client, op, method, path string, in any) ([]byte, http.Header, error) {
	rid := uuid.NewString()
	ctx = service.WithRequestID(ctx, rid)
	logger := service.NewLogger(ctx)
	start := time.Now()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, nil, &domain.TransportError{Op: op, Err: fmt.Errorf("failed to marshal request: %w", err)}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, nil, &domain.TransportError{Op: op, Err: fmt.Errorf("create request: %w", err)}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-Id", rid)

	resp, err := hc.Do(req)
	if err != nil {
		service.RecordUpstreamCall(time.Since(start), err)
		cerr := classifyRequestErr(op, err)
		if errors.Is(cerr, domain.ErrAuth) {
			c.session.Invalidate()
		}
		logger.LogError(op, cerr)
		return nil, nil, cerr
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	duration := time.Since(start)
	if err != nil {
		service.RecordUpstreamCall(duration, err)
		logger.LogError(op, err)
		return nil, nil, &domain.TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		cerr := classifyStatus(op, resp.StatusCode, data)
		service.RecordUpstreamCall(duration, cerr)
		if errors.Is(cerr, domain.ErrAuth) {
			c.session.Invalidate()
		}
		logger.LogWarnf(op, "service returned status %d", resp.StatusCode)
		return nil, nil, cerr
	}

	service.RecordUpstreamCall(duration, nil)
	logger.LogDebugf(op, "%s %s -> %d in %s", method, path, resp.StatusCode, duration)
	return data, resp.Header, nil
}

// call sends a JSON request and decodes a JSON reply into out (if non-nil).
func (c *Client) call(ctx context.Context, hc *http.Client, op, method, path string, in, out any) error {
	data, _, err := c.send(ctx, hc, op, method, path, in)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &domain.TransportError{Op: op, Err: fmt.Errorf("failed to unmarshal response: %w", err)}
	}
	return nil
}

type outlineResponse struct {
	Titles []string `json:"titles"`
}

// SuggestOutline asks the service for ordered section titles.
func (c *Client) SuggestOutline(ctx context.Context, req domain.OutlineRequest) ([]string, error) {
	var out outlineResponse
	if err := c.call(ctx, c.longClient, "suggest_outline", http.MethodPost, "/generate/outline", req, &out); err != nil {
		return nil, err
	}
	return out.Titles, nil
}

// ListProjects returns every project of the current user.
func (c *Client) ListProjects(ctx context.Context) ([]domain.Project, error) {
	var out []domain.Project
	if err := c.call(ctx, c.defaultClient, "list_projects", http.MethodGet, "/projects", nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Project{}
	}
	return out, nil
}

// GetProject fetches one project with its sections.
func (c *Client) GetProject(ctx context.Context, id int64) (*domain.Project, error) {
	var out domain.Project
	if err := c.call(ctx, c.defaultClient, "get_project", http.MethodGet, fmt.Sprintf("/projects/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateProject creates a project and its sections.
func (c *Client) CreateProject(ctx context.Context, spec domain.CreateProjectSpec) (*domain.Project, error) {
	var out domain.Project
	if err := c.call(ctx, c.defaultClient, "create_project", http.MethodPost, "/projects", spec, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProject sends a partial project update.
func (c *Client) UpdateProject(ctx context.Context, id int64, patch domain.ProjectPatch) (*domain.Project, error) {
	var out domain.Project
	if err := c.call(ctx, c.defaultClient, "update_project", http.MethodPut, fmt.Sprintf("/projects/%d", id), patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteProject removes a project and, server-side, its sections.
func (c *Client) DeleteProject(ctx context.Context, id int64) error {
	return c.call(ctx, c.defaultClient, "delete_project", http.MethodDelete, fmt.Sprintf("/projects/%d", id), nil, nil)
}

// GetSection fetches one section.
func (c *Client) GetSection(ctx context.Context, id int64) (*domain.Section, error) {
	var out domain.Section
	if err := c.call(ctx, c.defaultClient, "get_section", http.MethodGet, fmt.Sprintf("/sections/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateSection persists a partial section update.
func (c *Client) UpdateSection(ctx context.Context, id int64, patch domain.SectionPatch) (*domain.Section, error) {
	var out domain.Section
	if err := c.call(ctx, c.defaultClient, "update_section", http.MethodPut, fmt.Sprintf("/sections/%d", id), patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type generateRequest struct {
	ProjectID int64 `json:"project_id"`
}

// GenerateContent triggers server-side generation for every section. The
// reply is an acknowledgment only; content must be re-fetched.
func (c *Client) GenerateContent(ctx context.Context, projectID int64) error {
	return c.call(ctx, c.longClient, "generate_content", http.MethodPost, "/generate/content", generateRequest{ProjectID: projectID}, nil)
}

type refineRequest struct {
	SectionID int64  `json:"section_id"`
	Prompt    string `json:"prompt"`
}

// RefineSection asks the service to rewrite one section.
func (c *Client) RefineSection(ctx context.Context, sectionID int64, instruction string) (*domain.Refinement, error) {
	var out domain.Refinement
	if err := c.call(ctx, c.longClient, "refine_section", http.MethodPost, "/refine", refineRequest{SectionID: sectionID, Prompt: instruction}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListRefinements returns a section's refinement history, newest first.
func (c *Client) ListRefinements(ctx context.Context, sectionID int64) ([]domain.Refinement, error) {
	var out []domain.Refinement
	if err := c.call(ctx, c.defaultClient, "list_refinements", http.MethodGet, fmt.Sprintf("/refine/section/%d", sectionID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SubmitFeedback rates a refinement.
func (c *Client) SubmitFeedback(ctx context.Context, refinementID int64, fb domain.RefinementFeedback) (*domain.Refinement, error) {
	var out domain.Refinement
	if err := c.call(ctx, c.defaultClient, "refinement_feedback", http.MethodPut, fmt.Sprintf("/refine/%d/feedback", refinementID), fb, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExportDocument downloads the rendered document. The filename is the one
// suggested by the service, if any; callers usually rename it.
func (c *Client) ExportDocument(ctx context.Context, projectID int64, kind domain.DocumentKind) (*domain.Artifact, error) {
	if !kind.Valid() {
		return nil, domain.NewValidationError("document_type", "must be docx or pptx")
	}
	path := fmt.Sprintf("/export/%d/%s", projectID, kind.Extension())
	data, header, err := c.send(ctx, c.longClient, "export_document", http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	art := &domain.Artifact{
		ContentType: header.Get("Content-Type"),
		Data:        data,
	}
	if art.ContentType == "" {
		art.ContentType = kind.Info().ContentType
	}
	if _, params, err := mime.ParseMediaType(header.Get("Content-Disposition")); err == nil {
		art.Filename = params["filename"]
	}
	return art, nil
}
