package application_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/touka-aoi/tanzbot/server/application"
	"github.com/touka-aoi/tanzbot/server/application/mocks"
	"github.com/touka-aoi/tanzbot/server/domain"
)

// inlineLoop はRoomを起動せずに呼び出し元のゴルーチンでfnを実行します。
type inlineLoop struct{}

func (inlineLoop) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newManager(t *testing.T, maxClients int) *application.Manager {
	t.Helper()
	lib, err := application.LoadBehaviors("")
	require.NoError(t, err)
	world := application.NewWorld(maxClients, domain.Vec3{X: -100, Y: -100}, domain.Vec3{X: 100, Y: 100, Z: 100})
	return application.NewManager(world, lib, application.WithSeed(3))
}

// requireDeadline はプールへの呼び出しにタイムアウトが付いていることを確かめます。
func requireDeadline(t *testing.T, ctx context.Context) {
	t.Helper()
	if _, ok := ctx.Deadline(); !ok {
		t.Error("pool call without deadline")
	}
}

func TestNameSync_StocksSpareAndMarksDryTeam(t *testing.T) {
	ctrl := gomock.NewController(t)
	pool := mocks.NewMockNamePool(ctrl)
	m := newManager(t, 4)
	names := application.NewNameSync(pool, inlineLoop{}, m)
	ctx := context.Background()

	gomock.InOrder(
		pool.EXPECT().Acquire(gomock.Any(), domain.TeamAliens).DoAndReturn(
			func(ctx context.Context, _ domain.Team) (string, error) {
				requireDeadline(t, ctx)
				return "dretch", nil
			}),
		pool.EXPECT().Acquire(gomock.Any(), domain.TeamHumans).Return("", application.ErrNameUnavailable),
	)
	require.NoError(t, names.Sync(ctx))

	info, err := m.Add(ctx, application.AddRequest{Name: application.NameFromPool, Team: domain.TeamAliens})
	require.NoError(t, err)
	assert.Equal(t, "dretch", info.Name)

	_, err = m.Add(ctx, application.AddRequest{Name: application.NameFromPool, Team: domain.TeamHumans})
	assert.ErrorIs(t, err, application.ErrNameUnavailable)

	// 尽きたチームのフィラーは名前なしで補充される
	require.NoError(t, m.Fill(domain.TeamHumans, 1))
	m.FillNow(ctx)
	var unnamed int
	for _, b := range m.List() {
		if b.Filler && b.Name == application.UnnamedBot {
			unnamed++
		}
	}
	assert.Equal(t, 1, unnamed)
}

func TestNameSync_KeepsNameWhenSlotsAreFullAndReleasesOnClose(t *testing.T) {
	ctrl := gomock.NewController(t)
	pool := mocks.NewMockNamePool(ctrl)
	m := newManager(t, 1)
	names := application.NewNameSync(pool, inlineLoop{}, m)
	ctx := context.Background()

	_, err := m.World().ClaimSlot("human", false, domain.TeamHumans)
	require.NoError(t, err)

	pool.EXPECT().Acquire(gomock.Any(), domain.TeamAliens).Return("dretch", nil)
	pool.EXPECT().Acquire(gomock.Any(), domain.TeamHumans).Return("", application.ErrNameUnavailable).Times(2)
	require.NoError(t, names.Sync(ctx))

	_, err = m.Add(ctx, application.AddRequest{Name: application.NameFromPool, Team: domain.TeamAliens})
	assert.ErrorIs(t, err, application.ErrNoFreeSlot)

	// 名前は手元に戻っているので、次の同期で取り直さない
	require.NoError(t, names.Sync(ctx))

	pool.EXPECT().Release(gomock.Any(), domain.TeamAliens, "dretch").DoAndReturn(
		func(ctx context.Context, _ domain.Team, _ string) error {
			requireDeadline(t, ctx)
			return nil
		})
	names.Close(ctx)
}

func TestNameSync_ReleasesPartialAcquireOnError(t *testing.T) {
	ctrl := gomock.NewController(t)
	pool := mocks.NewMockNamePool(ctrl)
	m := newManager(t, 4)
	names := application.NewNameSync(pool, inlineLoop{}, m)
	ctx := context.Background()
	boom := errors.New("redis down")

	require.NoError(t, m.Fill(domain.TeamAliens, 2))
	gomock.InOrder(
		pool.EXPECT().Acquire(gomock.Any(), domain.TeamAliens).Return("granger", nil),
		pool.EXPECT().Acquire(gomock.Any(), domain.TeamAliens).Return("", boom),
		pool.EXPECT().Release(gomock.Any(), domain.TeamAliens, "granger").Return(nil),
	)

	assert.ErrorIs(t, names.Sync(ctx), boom)
	_, err := m.Add(ctx, application.AddRequest{Name: application.NameFromPool, Team: domain.TeamAliens})
	assert.ErrorIs(t, err, application.ErrNameUnavailable)

	// プールに届かない間は名前なしで補充する
	m.FillNow(ctx)
	assert.Len(t, m.List(), 2)
}

func TestNameSync_PoolCallTimesOut(t *testing.T) {
	ctrl := gomock.NewController(t)
	pool := mocks.NewMockNamePool(ctrl)
	m := newManager(t, 4)
	names := application.NewNameSync(pool, inlineLoop{}, m, application.WithPoolTimeout(20*time.Millisecond))

	pool.EXPECT().Acquire(gomock.Any(), domain.TeamAliens).DoAndReturn(
		func(ctx context.Context, _ domain.Team) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		})

	start := time.Now()
	err := names.Sync(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestNameSync_PoolErrorsPropagate(t *testing.T) {
	ctrl := gomock.NewController(t)
	pool := mocks.NewMockNamePool(ctrl)
	m := newManager(t, 2)
	names := application.NewNameSync(pool, inlineLoop{}, m)
	ctx := context.Background()
	boom := errors.New("redis down")

	pool.EXPECT().Clear(gomock.Any()).Return(boom)
	assert.ErrorIs(t, names.ClearNames(ctx), boom)

	pool.EXPECT().Add(gomock.Any(), domain.TeamAliens, []string{"a"}).Return(0, boom)
	_, err := names.AddNames(ctx, domain.TeamAliens, []string{"a"})
	assert.ErrorIs(t, err, boom)

	_, err = names.AddNames(ctx, domain.TeamNone, []string{"a"})
	assert.ErrorIs(t, err, application.ErrInvalidTeam)
}

func TestNameSync_ListTreatsReservedNamesAsFree(t *testing.T) {
	ctrl := gomock.NewController(t)
	pool := mocks.NewMockNamePool(ctrl)
	m := newManager(t, 4)
	names := application.NewNameSync(pool, inlineLoop{}, m)
	ctx := context.Background()

	pool.EXPECT().Acquire(gomock.Any(), domain.TeamAliens).Return("dretch", nil)
	pool.EXPECT().Acquire(gomock.Any(), domain.TeamHumans).Return("", application.ErrNameUnavailable)
	require.NoError(t, names.Sync(ctx))

	pool.EXPECT().List(gomock.Any()).Return([]application.PooledName{
		{Team: domain.TeamAliens, Name: "dretch", InUse: true},
		{Team: domain.TeamAliens, Name: "tyrant", InUse: true},
	}, nil)
	listed, err := names.ListNames(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.False(t, listed[0].InUse, "reserved name")
	assert.True(t, listed[1].InUse, "name held elsewhere")
}

// slowPool はAcquireのたびにdelayだけ待つNamePoolです。
type slowPool struct {
	*application.MemoryNamePool
	delay time.Duration
	calls atomic.Int32
}

func (p *slowPool) Acquire(ctx context.Context, team domain.Team) (string, error) {
	p.calls.Add(1)
	select {
	case <-time.After(p.delay):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return p.MemoryNamePool.Acquire(ctx, team)
}

func TestManager_FrameStaysOffSlowPool(t *testing.T) {
	const delay = 100 * time.Millisecond
	pool := &slowPool{MemoryNamePool: application.NewMemoryNamePool(), delay: delay}
	m := newManager(t, 8)
	names := application.NewNameSync(pool, inlineLoop{}, m)
	ctx := context.Background()

	_, err := pool.Add(ctx, domain.TeamAliens, []string{"granger", "dretch", "basilisk", "marauder", "tyrant"})
	require.NoError(t, err)
	require.NoError(t, m.Fill(domain.TeamAliens, 4))
	require.NoError(t, names.Sync(ctx))

	calls := pool.calls.Load()
	start := time.Now()
	m.Frame(ctx, time.Unix(0, 0))
	elapsed := time.Since(start)

	assert.Equal(t, calls, pool.calls.Load(), "Frame called the pool")
	assert.Less(t, elapsed, delay)

	got := map[string]bool{}
	for _, b := range m.List() {
		got[b.Name] = b.Filler
	}
	assert.Equal(t, map[string]bool{"granger": true, "dretch": true, "basilisk": true, "marauder": true}, got)
}
