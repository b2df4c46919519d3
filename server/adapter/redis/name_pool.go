package redisadapter

import (
	"context"
	"fmt"
	"slices"

	"github.com/redis/go-redis/v9"

	"github.com/touka-aoi/tanzbot/server/application"
	"github.com/touka-aoi/tanzbot/server/domain"
)

// DefaultKeyPrefix はボット名プールのキーの接頭辞です。
const DefaultKeyPrefix = "bot:names"

// NamePool はRedisに置いたボット名プールです。
// チームごとに名前のリスト（登録順）と使用中の名前の集合を持ちます。
//
//	bot:names:<team>        LIST
//	bot:names:<team>:inuse  SET
type NamePool struct {
	rdb    redis.UniversalClient
	prefix string
}

var _ application.NamePool = (*NamePool)(nil)

func NewNamePool(rdb redis.UniversalClient, prefix string) *NamePool {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &NamePool{rdb: rdb, prefix: prefix}
}

func (p *NamePool) listKey(team domain.Team) string {
	return fmt.Sprintf("%s:%s", p.prefix, team)
}

func (p *NamePool) inUseKey(team domain.Team) string {
	return fmt.Sprintf("%s:%s:inuse", p.prefix, team)
}

func validTeam(team domain.Team) bool {
	return team == domain.TeamAliens || team == domain.TeamHumans
}

func (p *NamePool) Add(ctx context.Context, team domain.Team, names []string) (int, error) {
	if !validTeam(team) {
		return 0, application.ErrInvalidTeam
	}
	existing, err := p.rdb.LRange(ctx, p.listKey(team), 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("list bot names: %w", err)
	}
	var fresh []any
	for _, name := range names {
		if name == "" || slices.Contains(existing, name) {
			continue
		}
		existing = append(existing, name)
		fresh = append(fresh, name)
	}
	if len(fresh) == 0 {
		return 0, nil
	}
	if err := p.rdb.RPush(ctx, p.listKey(team), fresh...).Err(); err != nil {
		return 0, fmt.Errorf("push bot names: %w", err)
	}
	return len(fresh), nil
}

// Acquire は登録順で最初の未使用の名前を使用中にして返します。
// 使用中の集合へのSADDが成功した名前だけを返すので、複数のサーバーが同じプールを共有しても重複しません。
func (p *NamePool) Acquire(ctx context.Context, team domain.Team) (string, error) {
	if !validTeam(team) {
		return "", application.ErrInvalidTeam
	}
	names, err := p.rdb.LRange(ctx, p.listKey(team), 0, -1).Result()
	if err != nil {
		return "", fmt.Errorf("list bot names: %w", err)
	}
	for _, name := range names {
		added, err := p.rdb.SAdd(ctx, p.inUseKey(team), name).Result()
		if err != nil {
			return "", fmt.Errorf("claim bot name: %w", err)
		}
		if added == 1 {
			return name, nil
		}
	}
	return "", application.ErrNameUnavailable
}

func (p *NamePool) Release(ctx context.Context, team domain.Team, name string) error {
	if !validTeam(team) {
		return application.ErrInvalidTeam
	}
	if err := p.rdb.SRem(ctx, p.inUseKey(team), name).Err(); err != nil {
		return fmt.Errorf("release bot name: %w", err)
	}
	return nil
}

func (p *NamePool) Clear(ctx context.Context) error {
	var keys []string
	for _, team := range []domain.Team{domain.TeamAliens, domain.TeamHumans} {
		n, err := p.rdb.SCard(ctx, p.inUseKey(team)).Result()
		if err != nil {
			return fmt.Errorf("count bot names in use: %w", err)
		}
		if n > 0 {
			return application.ErrNamesInUse
		}
		keys = append(keys, p.listKey(team), p.inUseKey(team))
	}
	if err := p.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("clear bot names: %w", err)
	}
	return nil
}

func (p *NamePool) List(ctx context.Context) ([]application.PooledName, error) {
	var out []application.PooledName
	for _, team := range []domain.Team{domain.TeamAliens, domain.TeamHumans} {
		names, err := p.rdb.LRange(ctx, p.listKey(team), 0, -1).Result()
		if err != nil {
			return nil, fmt.Errorf("list bot names: %w", err)
		}
		inUse, err := p.rdb.SMembers(ctx, p.inUseKey(team)).Result()
		if err != nil {
			return nil, fmt.Errorf("list bot names in use: %w", err)
		}
		for _, name := range names {
			out = append(out, application.PooledName{Team: team, Name: name, InUse: slices.Contains(inUse, name)})
		}
	}
	return out, nil
}
