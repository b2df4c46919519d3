package application

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/touka-aoi/tanzbot/server/domain"
)

var (
	ErrNameUnavailable = errors.New("no bot name available")
	ErrNamesInUse      = errors.New("bot names in use")
)

//go:generate go tool mockgen -destination=./mocks/name_pool_mock.go -package=mocks . NamePool

// NamePool はチームごとのボット名のリストです。
// 取得した名前は解放されるまで同じチームの他のボットには渡されません。
type NamePool interface {
	// Add は名前を追加し、新たに追加された数を返します。
	Add(ctx context.Context, team domain.Team, names []string) (int, error)
	Acquire(ctx context.Context, team domain.Team) (string, error)
	Release(ctx context.Context, team domain.Team, name string) error
	// Clear は全チームの名前を消します。使用中の名前があればErrNamesInUseです。
	Clear(ctx context.Context) error
	List(ctx context.Context) ([]PooledName, error)
}

// PooledName はプール内の名前1つと、その使用状況です。
type PooledName struct {
	Team  domain.Team `json:"team"`
	Name  string      `json:"name"`
	InUse bool        `json:"inUse"`
}

// MemoryNamePool はプロセス内のNamePoolです。
type MemoryNamePool struct {
	mu    sync.Mutex
	names [domain.NumTeams][]PooledName
}

func NewMemoryNamePool() *MemoryNamePool {
	return &MemoryNamePool{}
}

func (p *MemoryNamePool) Add(_ context.Context, team domain.Team, names []string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if team >= domain.NumTeams {
		return 0, ErrInvalidTeam
	}
	added := 0
	for _, name := range names {
		if name == "" || p.index(team, name) >= 0 {
			continue
		}
		p.names[team] = append(p.names[team], PooledName{Team: team, Name: name})
		added++
	}
	return added, nil
}

func (p *MemoryNamePool) Acquire(_ context.Context, team domain.Team) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if team >= domain.NumTeams {
		return "", ErrInvalidTeam
	}
	for i := range p.names[team] {
		if !p.names[team][i].InUse {
			p.names[team][i].InUse = true
			return p.names[team][i].Name, nil
		}
	}
	return "", ErrNameUnavailable
}

func (p *MemoryNamePool) Release(_ context.Context, team domain.Team, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if team >= domain.NumTeams {
		return ErrInvalidTeam
	}
	if i := p.index(team, name); i >= 0 {
		p.names[team][i].InUse = false
	}
	return nil
}

func (p *MemoryNamePool) Clear(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for team := range p.names {
		if slices.ContainsFunc(p.names[team], func(n PooledName) bool { return n.InUse }) {
			return ErrNamesInUse
		}
	}
	for team := range p.names {
		p.names[team] = nil
	}
	return nil
}

func (p *MemoryNamePool) List(context.Context) ([]PooledName, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []PooledName
	for team := range p.names {
		out = append(out, p.names[team]...)
	}
	return out, nil
}

func (p *MemoryNamePool) index(team domain.Team, name string) int {
	return slices.IndexFunc(p.names[team], func(n PooledName) bool { return n.Name == name })
}
