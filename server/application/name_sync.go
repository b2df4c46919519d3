package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/touka-aoi/tanzbot/server/domain"
)

const (
	DefaultNameSyncInterval = 500 * time.Millisecond
	DefaultNamePoolTimeout  = 2 * time.Second
)

// Loop はRoomのループゴルーチン上で処理を実行します。domain.Roomが満たします。
type Loop interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// NameSync はManagerの手元の名前とNamePoolをループの外で突き合わせます。
// プールへの呼び出しはすべてこの中で行い、それぞれにタイムアウトを付けます。
// Managerの状態にはLoop.Doの中でだけ触れます。
type NameSync struct {
	pool     NamePool
	loop     Loop
	manager  *Manager
	interval time.Duration
	timeout  time.Duration

	// mu は同期と全消去が交互に走らないようにします。
	mu sync.Mutex
}

type NameSyncOption func(*NameSync)

func WithSyncInterval(d time.Duration) NameSyncOption {
	return func(s *NameSync) { s.interval = d }
}

// WithPoolTimeout はプールへの1回の呼び出しの上限です。
func WithPoolTimeout(d time.Duration) NameSyncOption {
	return func(s *NameSync) { s.timeout = d }
}

func NewNameSync(pool NamePool, loop Loop, manager *Manager, opts ...NameSyncOption) *NameSync {
	s := &NameSync{
		pool:     pool,
		loop:     loop,
		manager:  manager,
		interval: DefaultNameSyncInterval,
		timeout:  DefaultNamePoolTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run はctxが終わるまで一定間隔で同期します。
func (s *NameSync) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.Sync(ctx); err != nil && ctx.Err() == nil {
				slog.WarnContext(ctx, "bot name sync failed", "err", err)
			}
		}
	}
}

// Prime はRoomのループを起動する前に1度だけ同期します。ループを介さずManagerに触れるため、
// ループの起動後に呼んではいけません。
func (s *NameSync) Prime(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sync(ctx, func(ctx context.Context, fn func(ctx context.Context) error) error {
		return fn(ctx)
	})
}

// Sync は返却待ちの名前をプールへ返し、不足している名前をプールから取得して手元へ補充します。
func (s *NameSync) Sync(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sync(ctx, s.loop.Do)
}

type doFunc func(ctx context.Context, fn func(ctx context.Context) error) error

func (s *NameSync) sync(ctx context.Context, do doFunc) error {
	var demand NameDemand
	if err := do(ctx, func(context.Context) error {
		demand = s.manager.nameDemand()
		return nil
	}); err != nil {
		return err
	}

	s.release(ctx, demand.Release)

	for team := domain.TeamAliens; team < domain.NumTeams; team++ {
		if demand.Need[team] <= 0 {
			continue
		}
		names, dry, err := s.acquire(ctx, team, demand.Need[team])
		if err != nil {
			// 届かないプールは尽きたものとして扱い、フィラーを名前なしで補充させる
			s.release(ctx, pooled(team, names))
			_ = do(ctx, func(context.Context) error {
				s.manager.reserve.stock(team, nil, true)
				return nil
			})
			return err
		}
		err = do(ctx, func(context.Context) error {
			s.manager.reserve.stock(team, names, dry)
			return nil
		})
		if err != nil {
			s.release(ctx, pooled(team, names))
			return err
		}
	}
	return nil
}

// acquire はn個まで名前を取得します。プールが尽きたらdryがtrueです。
func (s *NameSync) acquire(ctx context.Context, team domain.Team, n int) (names []string, dry bool, err error) {
	for range n {
		var name string
		err := s.call(ctx, func(ctx context.Context) error {
			var err error
			name, err = s.pool.Acquire(ctx, team)
			return err
		})
		if errors.Is(err, ErrNameUnavailable) {
			return names, true, nil
		}
		if err != nil {
			return names, false, fmt.Errorf("acquire bot name: %w", err)
		}
		names = append(names, name)
	}
	return names, false, nil
}

func (s *NameSync) release(ctx context.Context, names []PooledName) {
	for _, n := range names {
		err := s.call(ctx, func(ctx context.Context) error {
			return s.pool.Release(ctx, n.Team, n.Name)
		})
		if err != nil {
			slog.WarnContext(ctx, "failed to release bot name", "team", n.Team, "name", n.Name, "err", err)
		}
	}
}

// call はプールへの1回の呼び出しをタイムアウト付きで行います。
func (s *NameSync) call(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return fn(ctx)
}

// Close はボットと手元が持つプールの名前をすべて返します。
// Managerに直接触れるので、Roomのループが止まった後に呼びます。
func (s *NameSync) Close(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.release(ctx, s.manager.heldNames())
}

// AddNames はプールへ名前を追加し、すぐに手元へ補充します。
func (s *NameSync) AddNames(ctx context.Context, team domain.Team, names []string) (int, error) {
	if team != domain.TeamAliens && team != domain.TeamHumans {
		return 0, fmt.Errorf("%w: %d", ErrInvalidTeam, team)
	}
	var added int
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		added, err = s.pool.Add(ctx, team, names)
		return err
	})
	if err != nil {
		return 0, err
	}
	if err := s.Sync(ctx); err != nil {
		slog.WarnContext(ctx, "bot name sync after add failed", "err", err)
	}
	return added, nil
}

// ClearNames は手元の名前をプールへ返してからプールを空にします。
// ボットが使っている名前があればErrNamesInUseです。
func (s *NameSync) ClearNames(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var names []PooledName
	if err := s.loop.Do(ctx, func(context.Context) error {
		names = s.manager.reserve.drain()
		return nil
	}); err != nil {
		return err
	}
	s.release(ctx, names)
	return s.call(ctx, s.pool.Clear)
}

// ListNames はプールの名前を返します。手元で待機中の名前はボットが使っていないので未使用として扱います。
func (s *NameSync) ListNames(ctx context.Context) ([]PooledName, error) {
	var names []PooledName
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		names, err = s.pool.List(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	var reserved []PooledName
	if err := s.loop.Do(ctx, func(context.Context) error {
		reserved = s.manager.reserve.reserved()
		return nil
	}); err != nil {
		return nil, err
	}
	for i := range names {
		for _, r := range reserved {
			if r.Team == names[i].Team && r.Name == names[i].Name {
				names[i].InUse = false
			}
		}
	}
	return names, nil
}

func pooled(team domain.Team, names []string) []PooledName {
	out := make([]PooledName, 0, len(names))
	for _, name := range names {
		out = append(out, PooledName{Team: team, Name: name})
	}
	return out
}
