// Package api exposes the HTTP surface the browser agents and UI
// surfaces talk to: payload submission, control messages, dashboard
// queries and the agent command long-poll.
package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mkarvonen/orderwatch/internal/feed"
	"github.com/mkarvonen/orderwatch/internal/store"
	"github.com/mkarvonen/orderwatch/internal/watcher"
)

// maxCommandPollWait caps the agent command long-poll.
const maxCommandPollWait = 25 * time.Second

// Server wires the gin engine to the watcher and the state store.
// Handlers never mutate reconciliation state directly; everything goes
// through the watcher's inbox or touches only settings keys.
type Server struct {
	engine  *gin.Engine
	watcher *watcher.Watcher
	store   *store.Store
	hub     *AgentHub
	logger  *slog.Logger
}

func NewServer(w *watcher.Watcher, st *store.Store, hub *AgentHub, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		engine:  gin.New(),
		watcher: w,
		store:   st,
		hub:     hub,
		logger:  logger,
	}
	s.engine.Use(gin.Recovery())
	s.routes()
	return s
}

// Handler returns the root http.Handler for the API.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() {
	v1 := s.engine.Group("/api/v1")
	{
		v1.POST("/payload", s.handlePayload)
		v1.POST("/check", s.handleCheckNow)
		v1.GET("/summary", s.handleSummary)
		v1.GET("/config", s.handleConfig)
		v1.PATCH("/settings", s.handleSettings)
		v1.GET("/history", s.handleHistory)

		v1.POST("/agents/:id/heartbeat", s.handleHeartbeat)
		v1.GET("/agents/:id/commands", s.handleCommands)
	}
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

type payloadRequest struct {
	FrameID string `json:"frameId"`
	Data    []any  `json:"data" binding:"required"`
}

// handlePayload accepts one raw scrape payload from a page context.
// The flat array is converted to typed cells here; parsing and
// validation happen on the watcher loop.
func (s *Server) handlePayload(c *gin.Context) {
	var req payloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	if req.FrameID == "" {
		req.FrameID = "main"
	}

	if !s.watcher.SubmitPayload(req.FrameID, feed.CellsFromJSON(req.Data)) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "watcher busy"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"success": true})
}

func (s *Server) handleCheckNow(c *gin.Context) {
	if !s.watcher.CheckNow() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "watcher busy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleSummary(c *gin.Context) {
	summary, err := s.watcher.Summary(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": summary})
}

// handleConfig returns the classification vocabulary and presentation
// settings the browser agent needs before it can process responses.
func (s *Server) handleConfig(c *gin.Context) {
	vocab, err := s.store.Vocabulary()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	duration, err := s.store.AlertDurationSeconds()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	sound, err := s.store.SoundEnabled()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	interval, err := s.store.PollIntervalSeconds()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"config": gin.H{
			"completedStatuses":    vocab.CompletedStatuses,
			"collectKeywords":      vocab.CollectKeywords,
			"collectCodes":         vocab.CollectCodes,
			"shippingKeywords":     vocab.ShippingKeywords,
			"woltKeywords":         vocab.WoltKeywords,
			"woltCodes":            vocab.WoltCodes,
			"pollIntervalSeconds":  interval,
			"alertDurationSeconds": duration,
			"soundEnabled":         sound,
		},
	})
}

type settingsRequest struct {
	PollIntervalSeconds  *int      `json:"pollIntervalSeconds"`
	AlertDurationSeconds *int      `json:"alertDurationSeconds"`
	SoundEnabled         *bool     `json:"soundEnabled"`
	CompletedStatuses    *[]string `json:"completedStatuses"`
	CollectKeywords      *[]string `json:"collectKeywords"`
	CollectCodes         *[]string `json:"collectCodes"`
	ShippingKeywords     *[]string `json:"shippingKeywords"`
	WoltKeywords         *[]string `json:"woltKeywords"`
	WoltCodes            *[]string `json:"woltCodes"`
}

// handleSettings applies a partial settings update. These keys are the
// narrow slice of state the UI surfaces own; counts and watermarks
// remain the watcher's alone.
func (s *Server) handleSettings(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	values := map[string]any{}
	if req.PollIntervalSeconds != nil {
		v := *req.PollIntervalSeconds
		if v < 5 {
			v = 5
		} else if v > 60 {
			v = 60
		}
		values[store.KeyPollIntervalSeconds] = v
	}
	if req.AlertDurationSeconds != nil {
		values[store.KeyAlertDurationSeconds] = *req.AlertDurationSeconds
	}
	if req.SoundEnabled != nil {
		values[store.KeySoundEnabled] = *req.SoundEnabled
	}
	for key, field := range map[string]*[]string{
		store.KeyCompletedStatuses: req.CompletedStatuses,
		store.KeyCollectKeywords:   req.CollectKeywords,
		store.KeyCollectCodes:      req.CollectCodes,
		store.KeyShippingKeywords:  req.ShippingKeywords,
		store.KeyWoltKeywords:      req.WoltKeywords,
		store.KeyWoltCodes:         req.WoltCodes,
	} {
		if field != nil {
			values[key] = *field
		}
	}

	if len(values) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "no settings provided"})
		return
	}

	if err := s.store.SetMany(values); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	s.watcher.SettingsChanged()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleHistory(c *gin.Context) {
	log, err := s.store.History(time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": log})
}

func (s *Server) handleHeartbeat(c *gin.Context) {
	s.hub.Heartbeat(c.Param("id"), time.Now())
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// handleCommands is the agent long-poll: returns queued commands,
// waiting up to the wait query parameter (seconds) for the first one.
func (s *Server) handleCommands(c *gin.Context) {
	wait := 20 * time.Second
	if raw := c.Query("wait"); raw != "" {
		if sec, err := strconv.Atoi(raw); err == nil && sec >= 0 {
			wait = time.Duration(sec) * time.Second
		}
	}
	if wait > maxCommandPollWait {
		wait = maxCommandPollWait
	}

	cmds := s.hub.Poll(c.Request.Context(), c.Param("id"), wait)
	if cmds == nil {
		cmds = []Command{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "commands": cmds})
}
