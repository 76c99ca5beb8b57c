package http

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/docgen-client/internal/documents/domain"
)

// StubOptions configures the in-memory stub service.
type StubOptions struct {
	Token   string
	UserID  int64
	Version string
	// Now is used for timestamps; nil means time.Now.
	Now func() time.Time
}

// StubServer is an in-memory implementation of the generation service
// contract. Content generation is deterministic placeholder text.
type StubServer struct {
	opts StubOptions

	mu               sync.Mutex
	projects         map[int64]*domain.Project
	refinements      map[int64]*domain.Refinement
	nextProjectID    int64
	nextSectionID    int64
	nextRefinementID int64
}

// NewStubServer creates an empty stub service.
func NewStubServer(opts StubOptions) *StubServer {
	if opts.UserID == 0 {
		opts.UserID = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &StubServer{
		opts:        opts,
		projects:    make(map[int64]*domain.Project),
		refinements: make(map[int64]*domain.Refinement),
	}
}

// Router builds the gin engine serving the contract under /api.
func (s *StubServer) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Authorization", "Content-Type", "X-Request-Id"},
		ExposeHeaders:   []string{"Content-Disposition", "X-Request-Id"},
		MaxAge:          12 * time.Hour,
	}))
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	NewHealthHandler("docgen-stub", s.opts.Version, s.count).RegisterRoutes(r)

	api := r.Group("/api")
	api.Use(BearerAuthMiddleware(s.opts.Token, s.opts.UserID))
	s.register(api)
	return r
}

func (s *StubServer) register(api *gin.RouterGroup) {
	projects := api.Group("/projects")
	projects.GET("", s.listProjects)
	projects.POST("", s.createProject)
	projects.GET("/:id", s.getProject)
	projects.PUT("/:id", s.updateProject)
	projects.DELETE("/:id", s.deleteProject)

	sections := api.Group("/sections")
	sections.GET("/:id", s.getSection)
	sections.PUT("/:id", s.updateSection)

	gen := api.Group("/generate")
	gen.POST("/outline", s.suggestOutline)
	gen.POST("/content", s.generateContent)

	refine := api.Group("/refine")
	refine.POST("", s.refineSection)
	refine.GET("/section/:id", s.listRefinements)
	refine.PUT("/:id/feedback", s.refinementFeedback)

	api.GET("/export/:id/:format", s.exportDocument)
}

// Project returns a copy of a stored project, for assertions in tests.
func (s *StubServer) Project(id int64) (*domain.Project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

func (s *StubServer) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.projects)
}

// findSection locates a section and its project. Caller holds s.mu.
func (s *StubServer) findSection(id int64) (*domain.Project, int, bool) {
	for _, p := range s.projects {
		for i := range p.Sections {
			if p.Sections[i].ID == id {
				return p, i, true
			}
		}
	}
	return nil, 0, false
}

func (s *StubServer) sortedProjects() []domain.Project {
	ids := make([]int64, 0, len(s.projects))
	for id := range s.projects {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]domain.Project, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.projects[id].Clone())
	}
	return out
}

func outlineTitles(topic string, kind domain.DocumentKind, n int) []string {
	var base []string
	if kind == domain.KindSlideDeck {
		base = []string{"Title Slide", "Agenda", "Background", "Key Findings", "Analysis", "Recommendations", "Next Steps", "Q&A"}
	} else {
		base = []string{"Introduction", "Background", "Current Landscape", "Analysis", "Challenges", "Opportunities", "Recommendations", "Conclusion"}
	}
	titles := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if i < len(base) {
			titles = append(titles, base[i])
			continue
		}
		titles = append(titles, fmt.Sprintf("%s: Part %d", topic, i+1))
	}
	return titles
}

func generatedContent(p *domain.Project, sec domain.Section, context string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h2>%s</h2>\n", sec.Title)
	fmt.Fprintf(&b, "<p>%s for %q, %s %d of %d.</p>", sec.Title, p.MainTopic, p.Kind.Info().Section, sec.Order+1, len(p.Sections))
	if context != "" {
		fmt.Fprintf(&b, "\n<p>Builds on: %s.</p>", context)
	}
	return b.String()
}

func refinedContent(previous, prompt string) string {
	return fmt.Sprintf("%s\n<p><em>Revised: %s</em></p>", previous, prompt)
}

func renderDocument(p *domain.Project) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n_%s_\n", p.Title, p.MainTopic)
	for _, sec := range p.Sections {
		fmt.Fprintf(&b, "\n## %d. %s\n\n%s\n", sec.Order+1, sec.Title, sec.Content)
	}
	return []byte(b.String())
}
