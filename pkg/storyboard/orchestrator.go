package storyboard

import (
	"context"
	"log/slog"
	"sync"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/generator"
	"github.com/shouni/go-storyboard-kit/pkg/provider"
	"github.com/shouni/go-storyboard-kit/pkg/retry"
	"github.com/shouni/go-storyboard-kit/pkg/storage"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// 進捗の配分（パーセント）。キャスト 0-10、台本 10-40、描画 40-100。
const (
	progressCastDone   = 10
	progressScriptDone = 40
	progressComplete   = 100
)

// Options はオーケストレーターの動作設定です。
type Options struct {
	Retry        retry.Policy
	AspectRatio  string
	ImageLimiter *rate.Limiter // nil なら描画間の待機なし
	Tool         string
	Category     string
}

// Orchestrator はキャスト生成、台本生成、シーン描画を順に実行する状態機械です。
// RunState はこの構造体だけが書き換え、観測者にはコピーを渡します。
type Orchestrator struct {
	cast     CastGenerator
	script   SceneWriter
	renderer provider.ImageRenderer
	store    storage.ImageStore
	opts     Options

	mu           sync.RWMutex
	state        domain.RunState
	input        Input
	token        *domain.CancelToken
	done         chan struct{}
	running      bool
	regenerating int
	castBuilding int // 実行中の単独キャスト生成の数
	subs         map[int]chan domain.RunState
	nextSub      int
}

// New は依存関係を注入して Orchestrator を初期化します。
func New(cast CastGenerator, script SceneWriter, renderer provider.ImageRenderer, store storage.ImageStore, opts Options) *Orchestrator {
	if opts.AspectRatio == "" {
		opts.AspectRatio = generator.DefaultAspectRatio
	}
	done := make(chan struct{})
	close(done)
	return &Orchestrator{
		cast:     cast,
		script:   script,
		renderer: renderer,
		store:    store,
		opts:     opts,
		state:    domain.RunState{Status: domain.StatusIdle},
		done:     done,
		subs:     make(map[int]chan domain.RunState),
	}
}

// State は現在の RunState のコピーを返します。
func (o *Orchestrator) State() domain.RunState {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state.Clone()
}

// Done は現在のランが終わると閉じるチャネルを返します。ランがなければ閉じたチャネルです。
func (o *Orchestrator) Done() <-chan struct{} {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.done
}

// Subscribe は状態変化の通知を受け取るチャネルを返します。
// 受信が遅れた場合は古い通知を捨て、常に最新の状態だけが残ります。
// 返り値の関数で購読を解除します。
func (o *Orchestrator) Subscribe() (<-chan domain.RunState, func()) {
	o.mu.Lock()
	defer o.mu.Unlock()

	id := o.nextSub
	o.nextSub++
	ch := make(chan domain.RunState, 1)
	ch <- o.state.Clone()
	o.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.subs, id)
			o.mu.Unlock()
		})
	}
}

// Cancel は実行中のランに協調的キャンセルを要求します。
// 進行中のプロバイダ呼び出しは中断せず、次のバッチまたはシーンの境界で反映されます。
func (o *Orchestrator) Cancel() {
	o.mu.RLock()
	token := o.token
	running := o.running
	runID := o.state.RunID
	o.mu.RUnlock()

	if running {
		slog.Info("Cancellation requested", "run_id", runID)
		token.Cancel()
	}
}

// publishLocked は購読者に最新状態を送ります。o.mu を保持したまま呼び出します。
func (o *Orchestrator) publishLocked() {
	snap := o.state.Clone()
	for _, ch := range o.subs {
		select {
		case ch <- snap:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

func (o *Orchestrator) update(fn func(s *domain.RunState)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fn(&o.state)
	o.publishLocked()
}

// setProgressLocked は進捗を更新します。ラン内で進捗が戻ることはありません。
func setProgressLocked(s *domain.RunState, p int) {
	if p > progressComplete {
		p = progressComplete
	}
	if p > s.ProgressPercent {
		s.ProgressPercent = p
	}
}

func (o *Orchestrator) setProgress(p int) {
	o.update(func(s *domain.RunState) { setProgressLocked(s, p) })
}

// transition は許可された遷移だけを適用します。
func (o *Orchestrator) transition(to domain.RunStatus) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	from := o.state.Status
	if !from.CanTransition(to) {
		slog.Warn("Ignoring invalid state transition", "run_id", o.state.RunID, "from", from, "to", to)
		return false
	}
	o.state.Status = to
	slog.Info("Run state changed", "run_id", o.state.RunID, "from", from, "to", to)
	o.publishLocked()
	return true
}

// begin は新しいランの準備をします。別のランや再生成が進行中なら ErrRunActive を返します。
func (o *Orchestrator) begin(in Input, scenes domain.Scenes, characters domain.Cast) (*domain.CancelToken, chan struct{}, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.running || o.regenerating > 0 || o.castBuilding > 0 {
		return nil, nil, domain.ErrRunActive
	}
	o.running = true

	runID := in.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	in.RunID = runID
	if in.AspectRatio == "" {
		in.AspectRatio = o.opts.AspectRatio
	}

	o.input = in
	o.token = domain.NewCancelToken()
	o.done = make(chan struct{})
	o.state = domain.RunState{
		RunID:      runID,
		Status:     domain.StatusIdle,
		Scenes:     scenes,
		Characters: characters,
	}
	o.publishLocked()
	return o.token, o.done, nil
}

func (o *Orchestrator) finish(done chan struct{}) {
	o.mu.Lock()
	o.running = false
	o.mu.Unlock()
	close(done)
}

// Start は入力を検証し、ランをバックグラウンドで開始します。
// 検証エラーは即座に返し、プロバイダには触れません。
func (o *Orchestrator) Start(ctx context.Context, in Input) error {
	if err := in.Validate(); err != nil {
		return err
	}
	token, done, err := o.begin(in, nil, in.Characters.Copy())
	if err != nil {
		return err
	}

	go func() {
		_ = o.execute(context.WithoutCancel(ctx), token, done)
	}()
	return nil
}

// Run は入力を検証し、ランを同期的に実行します。
// Done なら nil、Cancelled なら domain.ErrCancelled、Failed なら原因のエラーを返します。
func (o *Orchestrator) Run(ctx context.Context, in Input) error {
	if err := in.Validate(); err != nil {
		return err
	}
	token, done, err := o.begin(in, nil, in.Characters.Copy())
	if err != nil {
		return err
	}
	return o.execute(ctx, token, done)
}

// GenerateCast はランとは独立にキャストを生成し、現在のキャラクターを置き換えます。
// ランの実行中は ErrRunActive を返します。生成が終わるまでは新しいランも開始できません。
func (o *Orchestrator) GenerateCast(ctx context.Context, req generator.CastRequest) (domain.Cast, error) {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return nil, domain.ErrRunActive
	}
	o.castBuilding++
	o.mu.Unlock()

	cast, err := o.cast.BuildCast(ctx, req)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.castBuilding--
	if err != nil {
		return nil, err
	}
	o.state.Characters = domain.MergeCast(o.state.Characters, cast, true)
	o.publishLocked()
	return cast, nil
}
