package dashboard

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/zulandar/shiftyard/internal/cell"
	"github.com/zulandar/shiftyard/internal/grid"
	"github.com/zulandar/shiftyard/internal/roster"
	"github.com/zulandar/shiftyard/internal/session"
	"github.com/zulandar/shiftyard/internal/store"
	"github.com/zulandar/shiftyard/internal/subtype"
)

// registerRoutes sets up all API routes on the Gin router.
func registerRoutes(router *gin.Engine, db *gorm.DB, reg *registry) {
	api := router.Group("/api")
	api.GET("/health", handleHealth(reg))
	api.GET("/cycles", handleCycleList(db))
	api.POST("/sessions", handleOpen(reg))

	s := api.Group("/sessions/:id")
	s.GET("", withSession(reg, handleSnapshot))
	s.DELETE("", handleClose(reg))
	s.GET("/stages", withSession(reg, handleStages))
	s.POST("/cells/advance", withSession(reg, handleAdvance))
	s.POST("/requirements/adjust", withSession(reg, handleAdjust))
	s.POST("/requirements/save", withSession(reg, handleSaveRequirements))
	s.POST("/leaves/save", withSession(reg, handleSaveLeaves))
	s.DELETE("/leaves", withSession(reg, handleClearLeaves))
	s.POST("/auto-schedule", withSession(reg, handleAutoSchedule))
	s.POST("/verify", withSession(reg, handleVerify))
	s.POST("/subtypes", withSession(reg, handleSubtypes))
	s.GET("/upload", withSession(reg, handleUploadPreview))
	s.POST("/upload", withSession(reg, handleUpload))
	s.GET("/comment", withSession(reg, handleComment))
	s.PUT("/comment", withSession(reg, handleSetComment))
	s.GET("/events", withSession(reg, handleEvents))
	s.GET("/events/stream", withSession(reg, handleEventStream))
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, roster.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, roster.ErrPreconditionViolation):
		return http.StatusConflict
	case errors.Is(err, roster.ErrRemoteFailure):
		return http.StatusBadGateway
	case errors.Is(err, roster.ErrInvalidRange),
		errors.Is(err, roster.ErrInvalidCatalog),
		errors.Is(err, roster.ErrMissingIdentity),
		errors.Is(err, roster.ErrAmbiguousName):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, err error) {
	body := gin.H{"error": err.Error()}
	var rerr *roster.RemoteError
	if errors.As(err, &rerr) && rerr.Message != "" {
		body["message"] = rerr.Message
	}
	c.JSON(statusFor(err), body)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// withSession resolves the :id path parameter before calling h.
func withSession(reg *registry, h func(*gin.Context, *session.Session)) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := reg.get(c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		h(c, sess)
	}
}

func handleHealth(reg *registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": reg.len()})
	}
}

func handleCycleList(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		cycles, err := store.ListCycles(db.WithContext(c.Request.Context()), c.Query("status"))
		if err != nil {
			writeError(c, err)
			return
		}
		out := make([]gin.H, 0, len(cycles))
		for _, cy := range cycles {
			out = append(out, gin.H{
				"id":          cy.ID,
				"start":       cy.StartDate.Format(grid.DateLayout),
				"end":         cy.EndDate.Format(grid.DateLayout),
				"shift_group": cy.ShiftGroup,
				"status":      cy.Status,
			})
		}
		c.JSON(http.StatusOK, out)
	}
}

type openRequest struct {
	CycleID uint `json:"cycle_id" binding:"required"`
}

func handleOpen(reg *registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req openRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		id, sess, err := reg.open(c.Request.Context(), req.CycleID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"session_id": id, "cycle_id": sess.CycleID()})
	}
}

func handleClose(reg *registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := reg.close(c.Param("id")); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func handleSnapshot(c *gin.Context, s *session.Session) {
	c.JSON(http.StatusOK, s.Snapshot())
}

func handleStages(c *gin.Context, s *session.Session) {
	c.JSON(http.StatusOK, s.Stages())
}

type advanceRequest struct {
	Member string `json:"member" binding:"required"`
	Date   string `json:"date" binding:"required,datetime=2006-01-02"`
}

func handleAdvance(c *gin.Context, s *session.Session) {
	var req advanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	date, err := grid.ParseDate(req.Date)
	if err != nil {
		badRequest(c, err)
		return
	}
	st, err := s.Advance(req.Member, date)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"state":  st.String(),
		"text":   st.Text(),
		"class":  st.Class(),
		"weight": st.Weight(),
	})
}

type adjustRequest struct {
	Member    string `json:"member" binding:"required"`
	ShiftType string `json:"shift_type" binding:"required,oneof=A B C"`
	Delta     int    `json:"delta"`
}

func handleAdjust(c *gin.Context, s *session.Session) {
	var req adjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cat, err := cell.ParseWorkLetter(req.ShiftType)
	if err != nil {
		badRequest(c, err)
		return
	}
	v, err := s.AdjustRequirement(req.Member, cat, req.Delta)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"member": req.Member, "shift_type": req.ShiftType, "value": v})
}

func handleSaveRequirements(c *gin.Context, s *session.Session) {
	n, err := s.SaveRequirements(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": n})
}

func handleSaveLeaves(c *gin.Context, s *session.Session) {
	n, err := s.SaveLeaves(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": n, "stages": s.Stages()})
}

func handleClearLeaves(c *gin.Context, s *session.Session) {
	n, err := s.ClearLeaves(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n, "stages": s.Stages()})
}

func handleAutoSchedule(c *gin.Context, s *session.Session) {
	if err := s.RunAutoSchedule(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.Snapshot())
}

func handleVerify(c *gin.Context, s *session.Session) {
	report, passed, err := s.Verify(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"passed": passed, "report": report, "stages": s.Stages()})
}

// resultBody re-keys an assignment result by shift letter.
func resultBody(res subtype.Result) gin.H {
	resets := make(map[string]int, len(res.Resets))
	for cat, n := range res.Resets {
		resets[cat.Letter()] = n
	}
	usage := make(map[string]map[string]int, len(res.Usage))
	for cat, u := range res.Usage {
		usage[cat.Letter()] = u
	}
	return gin.H{"assigned": res.Assigned, "resets": resets, "usage": usage}
}

func handleSubtypes(c *gin.Context, s *session.Session) {
	res, err := s.AssignSubtypes(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	body := resultBody(res)
	body["stages"] = s.Stages()
	c.JSON(http.StatusOK, body)
}

func handleUploadPreview(c *gin.Context, s *session.Session) {
	rows, err := s.UploadPreview()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func handleUpload(c *gin.Context, s *session.Session) {
	n, err := s.Upload(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": n, "stages": s.Stages()})
}

func handleComment(c *gin.Context, s *session.Session) {
	text, err := s.Comment(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comment": text})
}

type commentRequest struct {
	Comment string `json:"comment"`
}

func handleSetComment(c *gin.Context, s *session.Session) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.SetComment(c.Request.Context(), req.Comment); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comment": req.Comment})
}

func handleEvents(c *gin.Context, s *session.Session) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			badRequest(c, err)
			return
		}
		limit = n
	}
	events, err := s.Events(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]eventBody, 0, len(events))
	for _, e := range events {
		out = append(out, toEventBody(e))
	}
	c.JSON(http.StatusOK, out)
}
