package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/shouni/go-storyboard-kit/internal/builder"
	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/storage"
	"github.com/shouni/go-storyboard-kit/pkg/storyboard"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const shutdownTimeout = 15 * time.Second

// Server はストーリーボードのランを HTTP と WebSocket で公開します。
// ランごとに Orchestrator を1つ持ち、RunID で引き当てます。
type Server struct {
	app      *builder.AppContext
	upgrader websocket.Upgrader

	mu   sync.RWMutex
	runs map[string]*storyboard.Orchestrator

	// ランの完了後の履歴保存を待つためのグループです。
	persist sync.WaitGroup
}

// New は Server を生成します。
func New(app *builder.AppContext) *Server {
	return &Server{
		app: app,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		runs: make(map[string]*storyboard.Orchestrator),
	}
}

// Router はルーティングを設定した gin.Engine を返します。
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	api := r.Group("/api")
	{
		api.POST("/cast", s.handleGenerateCast)

		api.POST("/runs", s.handleStartRun)
		api.GET("/runs/:id", s.handleGetRun)
		api.POST("/runs/:id/cancel", s.handleCancelRun)
		api.POST("/runs/:id/scenes/:scene/regenerate", s.handleRegenerateScene)
		api.GET("/runs/:id/ws", s.handleRunStream)

		api.GET("/history", s.handleListHistory)
		api.POST("/history/:id/resume", s.handleResumeProject)
	}

	if s.app.Config.ImageStore == storage.BackendLocal {
		r.Static("/files", s.app.Config.OutputDir)
	}
	return r
}

// Run は addr で待ち受け、ctx が終了したらグレースフルに停止します。
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP サーバーの起動に失敗しました: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Shutting down HTTP server")
	s.cancelAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP サーバーの停止に失敗しました: %w", err)
	}
	s.Wait()
	return nil
}

// Wait は実行中のランの履歴保存がすべて終わるまで待ちます。
func (s *Server) Wait() {
	s.persist.Wait()
}

func (s *Server) lookup(id string) (*storyboard.Orchestrator, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	orch, ok := s.runs[id]
	return orch, ok
}

func (s *Server) register(id string, orch *storyboard.Orchestrator) {
	s.mu.Lock()
	s.runs[id] = orch
	s.mu.Unlock()
}

func (s *Server) cancelAll() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, orch := range s.runs {
		orch.Cancel()
	}
}

// watch はランの終了を待って結果を履歴に保存します。Failed のランは保存しません。
func (s *Server) watch(orch *storyboard.Orchestrator, title string) {
	done := orch.Done()
	s.persist.Add(1)
	go func() {
		defer s.persist.Done()
		<-done
		st := orch.State()
		if st.Status == domain.StatusFailed {
			slog.Warn("Run failed, not saving to history", "run_id", st.RunID, "error", st.Error)
			return
		}
		s.saveSnapshot(orch, title)
	}()
}

func (s *Server) saveSnapshot(orch *storyboard.Orchestrator, title string) {
	saved, err := s.app.History.Save(orch.Snapshot(title))
	if err != nil {
		slog.Error("Failed to save project history", "run_id", orch.State().RunID, "error", err)
		return
	}
	slog.Info("Project saved to history", "project_id", saved.ID, "status", saved.Data.Status)
}

// requestLogger は gin のリクエストを slog で記録します。
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Info("HTTP request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start).Round(time.Millisecond))
	}
}
