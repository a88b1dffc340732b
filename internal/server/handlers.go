package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/generator"
	"github.com/shouni/go-storyboard-kit/pkg/storage"
	"github.com/shouni/go-storyboard-kit/pkg/storyboard"

	"github.com/gin-gonic/gin"
)

type castRequest struct {
	Topic          string                 `json:"topic"`
	Count          int                    `json:"count"`
	ReferenceImage *domain.ReferenceImage `json:"referenceImage,omitempty"`
}

type runRequest struct {
	storyboard.Input
	ReferenceImage *domain.ReferenceImage `json:"referenceImage,omitempty"`
}

type historyItem struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	Scenes    int       `json:"scenes"`
	Rendered  int       `json:"rendered"`
}

func (s *Server) handleGenerateCast(c *gin.Context) {
	var req castRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, domain.NewValidationError("body", err.Error()))
		return
	}

	orch := s.app.Manager.NewOrchestrator()
	cast, err := orch.GenerateCast(c.Request.Context(), generator.CastRequest{
		Topic:     req.Topic,
		Count:     req.Count,
		Reference: req.ReferenceImage,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"characters": cast})
}

func (s *Server) handleStartRun(c *gin.Context) {
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, domain.NewValidationError("body", err.Error()))
		return
	}
	in := req.Input
	in.Reference = req.ReferenceImage
	in.RunID = ""
	if in.BatchSize == 0 {
		in.BatchSize = s.app.Config.App.BatchSize
	}

	orch := s.app.Manager.NewOrchestrator()
	if err := orch.Start(c.Request.Context(), in); err != nil {
		respondError(c, err)
		return
	}
	st := orch.State()
	s.register(st.RunID, orch)
	s.watch(orch, in.Title)

	slog.InfoContext(c.Request.Context(), "Run accepted", "run_id", st.RunID, "scenes", in.SceneCount)
	c.JSON(http.StatusAccepted, st)
}

func (s *Server) handleGetRun(c *gin.Context) {
	orch, ok := s.lookup(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	c.JSON(http.StatusOK, orch.State())
}

func (s *Server) handleCancelRun(c *gin.Context) {
	orch, ok := s.lookup(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	orch.Cancel()
	c.JSON(http.StatusAccepted, orch.State())
}

func (s *Server) handleRegenerateScene(c *gin.Context) {
	orch, ok := s.lookup(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	sceneNumber, err := strconv.Atoi(c.Param("scene"))
	if err != nil {
		respondError(c, domain.NewValidationError("scene", "scene number must be an integer"))
		return
	}

	if err := orch.RegenerateScene(c.Request.Context(), sceneNumber); err != nil {
		if errors.Is(err, domain.ErrSceneNotFound) || errors.Is(err, domain.ErrSceneBusy) ||
			errors.Is(err, domain.ErrNotRegenerable) || errors.Is(err, domain.ErrRunActive) {
			respondError(c, err)
			return
		}
		// 失敗はシーンの lastError に記録されているので、状態を返します。
		slog.WarnContext(c.Request.Context(), "Scene regeneration failed", "scene", sceneNumber, "error", err)
	}
	s.saveSnapshot(orch, "")
	c.JSON(http.StatusOK, orch.State())
}

func (s *Server) handleRunStream(c *gin.Context) {
	orch, ok := s.lookup(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("WebSocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	updates, unsubscribe := orch.Subscribe()
	defer unsubscribe()

	// クライアントからの切断を検知します。受信したメッセージは使いません。
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case st := <-updates:
			if err := conn.WriteJSON(st); err != nil {
				slog.Debug("WebSocket write failed", "error", err)
				return
			}
		case <-closed:
			return
		}
	}
}

func (s *Server) handleListHistory(c *gin.Context) {
	list, err := s.app.History.List()
	if err != nil {
		respondError(c, err)
		return
	}
	items := make([]historyItem, 0, len(list))
	for _, p := range list {
		items = append(items, historyItem{
			ID:        p.ID,
			Timestamp: p.Timestamp,
			Title:     p.Title,
			Status:    p.Data.Status,
			Scenes:    len(p.Data.Scenes),
			Rendered:  p.Data.Scenes.RenderedCount(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"projects": items})
}

func (s *Server) handleResumeProject(c *gin.Context) {
	snap, err := s.app.History.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	orch, ok := s.lookup(snap.ID)
	if !ok {
		orch = s.app.Manager.NewOrchestrator()
	}
	if err := orch.StartResume(c.Request.Context(), snap); err != nil {
		respondError(c, err)
		return
	}
	s.register(snap.ID, orch)
	s.watch(orch, snap.Title)
	c.JSON(http.StatusAccepted, orch.State())
}

// respondError はエラーの種類に応じたステータスコードで応答します。
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrSceneNotFound), errors.Is(err, storage.ErrProjectNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrRunActive), errors.Is(err, domain.ErrSceneBusy), errors.Is(err, domain.ErrNotRegenerable):
		status = http.StatusConflict
	default:
		switch domain.ErrorKindOf(err) {
		case domain.KindProvider, domain.KindParse, domain.KindExhaustedRetries:
			status = http.StatusBadGateway
		}
	}
	c.JSON(status, gin.H{"error": err.Error(), "kind": domain.ErrorKindOf(err)})
}
