package http

import (
	"mime"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/docgen-client/internal/documents/domain"
)

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "invalid " + name})
		return 0, false
	}
	return id, true
}

func (s *StubServer) listProjects(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, s.sortedProjects())
}

func (s *StubServer) createProject(c *gin.Context) {
	var req domain.CreateProjectSpec
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "invalid body"})
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.MainTopic) == "" || !req.Kind.Valid() {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "title, main_topic and a valid document_type are required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.opts.Now()
	s.nextProjectID++
	p := &domain.Project{
		ID:        s.nextProjectID,
		UserID:    s.opts.UserID,
		Title:     req.Title,
		Kind:      req.Kind,
		MainTopic: req.MainTopic,
		CreatedAt: now,
		UpdatedAt: now,
		Sections:  make([]domain.Section, 0, len(req.Sections)),
	}
	for _, spec := range req.Sections {
		s.nextSectionID++
		p.Sections = append(p.Sections, domain.Section{
			ID:        s.nextSectionID,
			ProjectID: p.ID,
			Title:     spec.Title,
			Order:     spec.Order,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	p.SortSections()
	s.projects[p.ID] = p

	c.JSON(http.StatusCreated, p)
}

func (s *StubServer) getProject(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, found := s.projects[id]
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Project not found"})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *StubServer) updateProject(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var patch domain.ProjectPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "invalid body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, found := s.projects[id]
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Project not found"})
		return
	}
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.MainTopic != nil {
		p.MainTopic = *patch.MainTopic
	}
	p.UpdatedAt = s.opts.Now()
	c.JSON(http.StatusOK, p)
}

func (s *StubServer) deleteProject(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, found := s.projects[id]
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Project not found"})
		return
	}
	for _, sec := range p.Sections {
		for rid, r := range s.refinements {
			if r.SectionID == sec.ID {
				delete(s.refinements, rid)
			}
		}
	}
	delete(s.projects, id)
	c.Status(http.StatusNoContent)
}

func (s *StubServer) getSection(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, i, found := s.findSection(id)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Section not found"})
		return
	}
	c.JSON(http.StatusOK, p.Sections[i])
}

func (s *StubServer) updateSection(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var patch domain.SectionPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "invalid body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, i, found := s.findSection(id)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Section not found"})
		return
	}
	sec := &p.Sections[i]
	if patch.Title != nil {
		sec.Title = *patch.Title
	}
	if patch.Content != nil {
		sec.Content = *patch.Content
	}
	if patch.Order != nil {
		sec.Order = *patch.Order
	}
	sec.UpdatedAt = s.opts.Now()
	updated := *sec
	p.SortSections()
	c.JSON(http.StatusOK, updated)
}

func (s *StubServer) suggestOutline(c *gin.Context) {
	var req domain.OutlineRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.MainTopic) == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "main_topic is required"})
		return
	}
	if req.NumSections <= 0 {
		req.NumSections = 5
	}
	c.JSON(http.StatusOK, gin.H{"titles": outlineTitles(req.MainTopic, req.Kind, req.NumSections)})
}

func (s *StubServer) generateContent(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "invalid body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, found := s.projects[req.ProjectID]
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Project not found"})
		return
	}
	if len(p.Sections) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "No sections found in project"})
		return
	}

	context := ""
	now := s.opts.Now()
	for i := range p.Sections {
		sec := &p.Sections[i]
		sec.Content = generatedContent(p, *sec, context)
		sec.UpdatedAt = now
		if context != "" {
			context += "; "
		}
		context += sec.Title
	}
	c.JSON(http.StatusOK, gin.H{"message": "Content generated successfully", "project_id": p.ID})
}

func (s *StubServer) refineSection(c *gin.Context) {
	var req refineRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Prompt) == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "section_id and prompt are required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, i, found := s.findSection(req.SectionID)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Section not found"})
		return
	}
	sec := &p.Sections[i]
	now := s.opts.Now()

	s.nextRefinementID++
	r := &domain.Refinement{
		ID:              s.nextRefinementID,
		SectionID:       sec.ID,
		Prompt:          req.Prompt,
		PreviousContent: sec.Content,
		NewContent:      refinedContent(sec.Content, req.Prompt),
		CreatedAt:       now,
	}
	s.refinements[r.ID] = r
	sec.Content = r.NewContent
	sec.UpdatedAt = now

	c.JSON(http.StatusOK, r)
}

func (s *StubServer) listRefinements(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, _, found := s.findSection(id); !found {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Section not found"})
		return
	}
	out := make([]domain.Refinement, 0)
	for _, r := range s.refinements {
		if r.SectionID == id {
			out = append(out, *r)
		}
	}
	// newest first; ids are monotonic
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	c.JSON(http.StatusOK, out)
}

func (s *StubServer) refinementFeedback(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var fb domain.RefinementFeedback
	if err := c.ShouldBindJSON(&fb); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "invalid body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, found := s.refinements[id]
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Refinement not found"})
		return
	}
	if fb.Liked != nil {
		r.Liked = domain.Ptr(*fb.Liked)
	}
	if fb.Comment != nil {
		r.Comment = *fb.Comment
	}
	c.JSON(http.StatusOK, r)
}

func (s *StubServer) exportDocument(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	kind, err := domain.ParseDocumentKind(c.Param("format"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Unknown export format"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, found := s.projects[id]
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Project not found"})
		return
	}
	if p.Kind != kind {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Project is not a " + kind.Info().Label})
		return
	}

	filename := strings.ReplaceAll(p.Title, " ", "_") + "." + kind.Extension()
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	c.Data(http.StatusOK, kind.Info().ContentType, renderDocument(p))
}
