package application

import "github.com/touka-aoi/tanzbot/server/domain"

const (
	// MaxEnemyQueue は1体のボットが覚えておける目撃情報の最大数です。
	MaxEnemyQueue = 32
	// TimeNever は一度も目撃していないことを表します。
	TimeNever int64 = -1
)

// Sighting は敵を目撃した記録です。Seenはレベル時刻（ミリ秒）です。
type Sighting struct {
	Entity domain.EntityID
	Seen   int64
}

// EnemyQueue は目撃情報の固定長リングバッファです。
// 満杯時の追加は最も古い記録を追い出してから行います。
// スロットを1つ余分に持つので、(back - front) mod len(entries) が常に件数になります。
type EnemyQueue struct {
	entries [MaxEnemyQueue + 1]Sighting
	front   int
	back    int
}

func (q *EnemyQueue) next(i int) int { return (i + 1) % len(q.entries) }

// Len は保持している記録の数です。
func (q *EnemyQueue) Len() int {
	return (q.back - q.front + len(q.entries)) % len(q.entries)
}

// Record は目撃を追加します。無効なエンティティは無視します。
func (q *EnemyQueue) Record(ent domain.EntityID, seen int64) {
	if !ent.Valid() {
		return
	}
	if q.Len() == MaxEnemyQueue {
		q.front = q.next(q.front)
	}
	q.entries[q.back] = Sighting{Entity: ent, Seen: seen}
	q.back = q.next(q.back)
}

// MostRecentTimeSeen は最新の記録の時刻を返します。空ならTimeNeverです。
func (q *EnemyQueue) MostRecentTimeSeen() int64 {
	if q.Len() == 0 {
		return TimeNever
	}
	last := (q.back - 1 + len(q.entries)) % len(q.entries)
	return q.entries[last].Seen
}

// LastSeen はエンティティの最新の目撃時刻を返します。
func (q *EnemyQueue) LastSeen(ent domain.EntityID) int64 {
	seen := TimeNever
	q.Each(func(s Sighting) bool {
		if s.Entity == ent && s.Seen > seen {
			seen = s.Seen
		}
		return true
	})
	return seen
}

// Each は古い順に記録を走査します。fnがfalseを返すと打ち切ります。
func (q *EnemyQueue) Each(fn func(Sighting) bool) {
	for i := q.front; i != q.back; i = q.next(i) {
		if !fn(q.entries[i]) {
			return
		}
	}
}

// PruneStale は先頭から、maxAgeより古いか実体が消えた記録を取り除きます。
// 新しく生存している記録に当たった時点で止まります。取り除いた数を返します。
func (q *EnemyQueue) PruneStale(now, maxAge int64, alive func(domain.EntityID) bool) int {
	removed := 0
	for q.front != q.back {
		s := q.entries[q.front]
		if now-s.Seen <= maxAge && alive(s.Entity) {
			break
		}
		q.front = q.next(q.front)
		removed++
	}
	return removed
}

func (q *EnemyQueue) Clear() {
	q.front, q.back = 0, 0
}
