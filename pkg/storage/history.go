package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/shouni/go-storyboard-kit/pkg/domain"

	"github.com/google/uuid"
)

// DefaultHistoryLimit は履歴に保持するプロジェクトの最大数です。
const DefaultHistoryLimit = 50

// ErrProjectNotFound は指定 ID のプロジェクトが履歴にないことを表します。
var ErrProjectNotFound = errors.New("project not found in history")

// HistoryStore はプロジェクトスナップショットの履歴一覧です。新しいものが先頭に来ます。
type HistoryStore interface {
	Save(snapshot domain.ProjectSnapshot) (domain.ProjectSnapshot, error)
	List() ([]domain.ProjectSnapshot, error)
	Get(id string) (domain.ProjectSnapshot, error)
}

// FileHistory は履歴を1つの JSON ファイルに保存します。
type FileHistory struct {
	path  string
	limit int
	now   func() time.Time
	mu    sync.Mutex
}

// NewFileHistory は FileHistory を生成します。limit が0以下の場合は DefaultHistoryLimit を使います。
func NewFileHistory(path string, limit int) *FileHistory {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &FileHistory{path: path, limit: limit, now: time.Now}
}

// Save はスナップショットを履歴の先頭に追加します。
// ID が空なら新しく採番し、同じ ID の既存エントリは取り除いてから先頭に置きます。
func (h *FileHistory) Save(snapshot domain.ProjectSnapshot) (domain.ProjectSnapshot, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if snapshot.ID == "" {
		snapshot.ID = uuid.NewString()
	}
	if snapshot.Timestamp.IsZero() {
		snapshot.Timestamp = h.now()
	}

	list, err := h.load()
	if err != nil {
		return domain.ProjectSnapshot{}, err
	}

	updated := make([]domain.ProjectSnapshot, 0, len(list)+1)
	updated = append(updated, snapshot)
	for _, p := range list {
		if p.ID != snapshot.ID {
			updated = append(updated, p)
		}
	}
	if len(updated) > h.limit {
		updated = updated[:h.limit]
	}

	if err := h.write(updated); err != nil {
		return domain.ProjectSnapshot{}, err
	}
	return snapshot, nil
}

// List は履歴を新しい順に返します。
func (h *FileHistory) List() ([]domain.ProjectSnapshot, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.load()
}

// Get は ID に一致するスナップショットを返します。
func (h *FileHistory) Get(id string) (domain.ProjectSnapshot, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	list, err := h.load()
	if err != nil {
		return domain.ProjectSnapshot{}, err
	}
	for _, p := range list {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.ProjectSnapshot{}, fmt.Errorf("%w: %s", ErrProjectNotFound, id)
}

func (h *FileHistory) load() ([]domain.ProjectSnapshot, error) {
	data, err := os.ReadFile(h.path)
	if errors.Is(err, os.ErrNotExist) {
		return []domain.ProjectSnapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("履歴ファイルの読み込みに失敗しました: %w", err)
	}
	if len(data) == 0 {
		return []domain.ProjectSnapshot{}, nil
	}

	var list []domain.ProjectSnapshot
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("履歴ファイルのデコードに失敗しました: %w", err)
	}
	return list, nil
}

func (h *FileHistory) write(list []domain.ProjectSnapshot) error {
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("履歴のエンコードに失敗しました: %w", err)
	}
	if dir := filepath.Dir(h.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("履歴ディレクトリの作成に失敗しました: %w", err)
		}
	}

	tmp := h.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("履歴ファイルの書き込みに失敗しました: %w", err)
	}
	return os.Rename(tmp, h.path)
}
