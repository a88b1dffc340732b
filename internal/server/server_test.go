package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shouni/go-storyboard-kit/internal/builder"
	"github.com/shouni/go-storyboard-kit/internal/config"
	appcfg "github.com/shouni/go-storyboard-kit/pkg/config"
	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/provider"
	"github.com/shouni/go-storyboard-kit/pkg/storage"
	"github.com/shouni/go-storyboard-kit/pkg/workflow"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"google.golang.org/genai"
)

type stubProvider struct{}

func (stubProvider) GenerateStructuredText(_ context.Context, _ string, schema *genai.Schema) (string, error) {
	if schema == provider.CastSchema {
		return `{"characters":[{"name":"Kai","description":"red jacket"},{"name":"Noa","description":"white cap"}]}`, nil
	}
	parts := make([]string, 10)
	for i := range parts {
		parts[i] = fmt.Sprintf(`{"action":"a%d","consistentContext":"station","fullPrompt":"frame %d"}`, i, i)
	}
	return "[" + strings.Join(parts, ",") + "]", nil
}

func (stubProvider) GenerateImage(_ context.Context, prompt, _ string) (domain.Image, error) {
	return domain.Image{Data: []byte(prompt), MimeType: "image/png"}, nil
}

func (stubProvider) AnalyzeImage(context.Context, []byte, string) (domain.ImageAnalysis, error) {
	return domain.ImageAnalysis{}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	app := appcfg.DefaultConfig()
	app.BaseDelay = time.Millisecond
	app.BatchDelay = 0
	app.RateInterval = 0

	dir := t.TempDir()
	store := storage.NewDataURLStore()
	manager, err := workflow.New(context.Background(), workflow.ManagerArgs{Config: app, Store: store, Provider: stubProvider{}})
	if err != nil {
		t.Fatalf("Manager の初期化に失敗しました: %v", err)
	}
	return New(&builder.AppContext{
		Config:  &config.Config{App: app, ImageStore: storage.BackendDataURL, OutputDir: dir},
		Manager: manager,
		Store:   store,
		History: storage.NewFileHistory(filepath.Join(dir, "history.json"), 10),
	})
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("リクエストのエンコードに失敗しました: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeState(t *testing.T, w *httptest.ResponseRecorder) domain.RunState {
	t.Helper()
	var st domain.RunState
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("レスポンスのデコードに失敗しました: %v\n%s", err, w.Body.String())
	}
	return st
}

var validRun = map[string]any{
	"title":      "Last train",
	"synopsis":   "A commuter misses the last train and meets a stranger.",
	"sceneCount": 4,
	"characters": []map[string]string{{"name": "Kai", "description": "red jacket"}},
}

// startFinishedRun はランを開始し、完了と履歴保存を待ってから RunID を返します。
func startFinishedRun(t *testing.T, s *Server, h http.Handler) string {
	t.Helper()
	w := doJSON(t, h, http.MethodPost, "/api/runs", validRun)
	if w.Code != http.StatusAccepted {
		t.Fatalf("期待値 202, 実際の値 %d: %s", w.Code, w.Body.String())
	}
	id := decodeState(t, w).RunID
	if id == "" {
		t.Fatal("RunID が返されていません")
	}
	orch, ok := s.lookup(id)
	if !ok {
		t.Fatal("ランが登録されていません")
	}
	select {
	case <-orch.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("ランが終了しませんでした")
	}
	s.Wait()
	return id
}

func TestServer_Runs(t *testing.T) {
	s := newTestServer(t)
	h := s.Router()

	t.Run("入力エラーは400になること", func(t *testing.T) {
		w := doJSON(t, h, http.MethodPost, "/api/runs", map[string]any{"synopsis": "", "sceneCount": 3})
		if w.Code != http.StatusBadRequest {
			t.Errorf("期待値 400, 実際の値 %d", w.Code)
		}
		if !strings.Contains(w.Body.String(), `"kind":"validation"`) {
			t.Errorf("エラー種別が含まれていません: %s", w.Body.String())
		}
	})

	id := startFinishedRun(t, s, h)

	t.Run("完了したランの状態を取得できること", func(t *testing.T) {
		w := doJSON(t, h, http.MethodGet, "/api/runs/"+id, nil)
		st := decodeState(t, w)
		if w.Code != http.StatusOK || st.Status != domain.StatusDone || len(st.Scenes) != 4 {
			t.Errorf("期待値 200/Done/4シーン, 実際の値 %d/%s/%d", w.Code, st.Status, len(st.Scenes))
		}
	})

	t.Run("完了したランは履歴に保存されること", func(t *testing.T) {
		w := doJSON(t, h, http.MethodGet, "/api/history", nil)
		var body struct {
			Projects []historyItem `json:"projects"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("レスポンスのデコードに失敗しました: %v", err)
		}
		if len(body.Projects) != 1 || body.Projects[0].ID != id || body.Projects[0].Rendered != 4 {
			t.Errorf("履歴が正しくありません: %+v", body.Projects)
		}
	})

	t.Run("1シーンを再生成できること", func(t *testing.T) {
		w := doJSON(t, h, http.MethodPost, "/api/runs/"+id+"/scenes/2/regenerate", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("期待値 200, 実際の値 %d: %s", w.Code, w.Body.String())
		}
		if st := decodeState(t, w); !st.Scenes[1].HasImage() || st.Scenes[1].LastError != nil {
			t.Errorf("シーン2の状態が正しくありません: %+v", st.Scenes[1])
		}
	})

	t.Run("存在しないシーンの再生成は404になること", func(t *testing.T) {
		w := doJSON(t, h, http.MethodPost, "/api/runs/"+id+"/scenes/42/regenerate", nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("期待値 404, 実際の値 %d", w.Code)
		}
	})

	t.Run("存在しないランは404になること", func(t *testing.T) {
		for _, path := range []string{"/api/runs/missing", "/api/runs/missing/cancel"} {
			method := http.MethodGet
			if strings.HasSuffix(path, "cancel") {
				method = http.MethodPost
			}
			if w := doJSON(t, h, method, path, nil); w.Code != http.StatusNotFound {
				t.Errorf("%s: 期待値 404, 実際の値 %d", path, w.Code)
			}
		}
	})

	t.Run("履歴のプロジェクトを再開できること", func(t *testing.T) {
		w := doJSON(t, h, http.MethodPost, "/api/history/"+id+"/resume", nil)
		if w.Code != http.StatusAccepted {
			t.Fatalf("期待値 202, 実際の値 %d: %s", w.Code, w.Body.String())
		}
		orch, _ := s.lookup(id)
		<-orch.Done()
		s.Wait()
		if st := orch.State(); st.Status != domain.StatusDone {
			t.Errorf("期待値 Done, 実際の値 %s", st.Status)
		}
	})

	t.Run("存在しない履歴の再開は404になること", func(t *testing.T) {
		if w := doJSON(t, h, http.MethodPost, "/api/history/missing/resume", nil); w.Code != http.StatusNotFound {
			t.Errorf("期待値 404, 実際の値 %d", w.Code)
		}
	})
}

func TestServer_GenerateCast(t *testing.T) {
	s := newTestServer(t)
	h := s.Router()

	w := doJSON(t, h, http.MethodPost, "/api/cast", map[string]any{"topic": "night station", "count": 2})
	if w.Code != http.StatusOK {
		t.Fatalf("期待値 200, 実際の値 %d: %s", w.Code, w.Body.String())
	}
	var body struct {
		Characters domain.Cast `json:"characters"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("レスポンスのデコードに失敗しました: %v", err)
	}
	if len(body.Characters) != 2 || body.Characters[1].Name != "Noa" {
		t.Errorf("キャストが正しくありません: %+v", body.Characters)
	}

	t.Run("人数が範囲外なら400になること", func(t *testing.T) {
		w := doJSON(t, h, http.MethodPost, "/api/cast", map[string]any{"topic": "x", "count": 9})
		if w.Code != http.StatusBadRequest {
			t.Errorf("期待値 400, 実際の値 %d", w.Code)
		}
	})
}

func TestServer_RunStream(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	id := startFinishedRun(t, s, ts.Config.Handler)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/runs/" + id + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("WebSocket 接続に失敗しました: %v", err)
	}
	defer conn.Close()

	if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		t.Fatalf("予期しないエラーです: %v", err)
	}
	var st domain.RunState
	if err := conn.ReadJSON(&st); err != nil {
		t.Fatalf("状態の受信に失敗しました: %v", err)
	}
	if st.RunID != id || st.Status != domain.StatusDone {
		t.Errorf("期待値 %s/Done, 実際の値 %s/%s", id, st.RunID, st.Status)
	}
}
