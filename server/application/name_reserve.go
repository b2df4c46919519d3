package application

import (
	"slices"

	"github.com/touka-aoi/tanzbot/server/domain"
)

// spareNames はフィラーの不足分とは別に、チームごとに手元へ確保しておく名前の数です。
const spareNames = 1

// nameReserve はNamePoolから取得済みで、まだボットに渡していない名前の手元の写しです。
// Roomのループからのみ触れ、NamePoolとの同期はNameSyncがループの外で行います。
type nameReserve struct {
	ready    [domain.NumTeams][]string
	returned []PooledName
	// dry は前回の同期でプールの名前が尽きていたチームです。
	dry [domain.NumTeams]bool
}

func newNameReserve() nameReserve {
	var r nameReserve
	for team := range r.dry {
		r.dry[team] = true
	}
	return r
}

// take は接続中のクライアントと衝突しない最初の名前を取り出します。
// 衝突した名前は手元に残すので、プールから同じ名前が再び配られることはありません。
func (r *nameReserve) take(team domain.Team, inUse func(string) bool) (string, error) {
	i := slices.IndexFunc(r.ready[team], func(name string) bool { return !inUse(name) })
	if i < 0 {
		return "", ErrNameUnavailable
	}
	name := r.ready[team][i]
	r.ready[team] = slices.Delete(r.ready[team], i, i+1)
	return name, nil
}

// trim は使える名前をwant個まで残し、余りを返却に回します。使える名前の数を返します。
// 接続中のクライアントと衝突している名前は数えずに手元に残します。
func (r *nameReserve) trim(team domain.Team, want int, inUse func(string) bool) int {
	usable := 0
	kept := r.ready[team][:0]
	for _, name := range r.ready[team] {
		switch {
		case inUse(name):
			kept = append(kept, name)
		case usable < want:
			usable++
			kept = append(kept, name)
		default:
			r.give(team, name)
		}
	}
	r.ready[team] = kept
	return usable
}

// putBack は取り出したが使わなかった名前を先頭へ戻します。
func (r *nameReserve) putBack(team domain.Team, name string) {
	r.ready[team] = slices.Insert(r.ready[team], 0, name)
}

// give はボットが手放した名前をプールへ返す予定に入れます。
func (r *nameReserve) give(team domain.Team, name string) {
	r.returned = append(r.returned, PooledName{Team: team, Name: name})
}

func (r *nameReserve) stock(team domain.Team, names []string, dry bool) {
	r.ready[team] = append(r.ready[team], names...)
	r.dry[team] = dry
}

// drain は手元の名前をすべてプールへ返す予定に移し、返す予定の一覧を渡します。
func (r *nameReserve) drain() []PooledName {
	for team := range r.ready {
		for _, name := range r.ready[team] {
			r.give(domain.Team(team), name)
		}
		r.ready[team] = nil
	}
	out := r.returned
	r.returned = nil
	return out
}

func (r *nameReserve) reserved() []PooledName {
	var out []PooledName
	for team := range r.ready {
		for _, name := range r.ready[team] {
			out = append(out, PooledName{Team: domain.Team(team), Name: name})
		}
	}
	return out
}
