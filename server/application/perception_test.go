package application

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/touka-aoi/tanzbot/server/domain"
)

func sightings(q *EnemyQueue) []Sighting {
	var out []Sighting
	q.Each(func(s Sighting) bool {
		out = append(out, s)
		return true
	})
	return out
}

func TestEnemyQueue_EvictsOldestPastCapacity(t *testing.T) {
	var q EnemyQueue
	for i := 1; i <= MaxEnemyQueue; i++ {
		q.Record(domain.EntityID(i), int64(i*10))
	}
	if q.Len() != MaxEnemyQueue {
		t.Fatalf("Len = %d, want %d", q.Len(), MaxEnemyQueue)
	}

	q.Record(33, 330)

	got := sightings(&q)
	if len(got) != MaxEnemyQueue {
		t.Fatalf("len = %d, want %d", len(got), MaxEnemyQueue)
	}
	if got[0].Entity != 2 {
		t.Errorf("front = %d, want 2", got[0].Entity)
	}
	if got[len(got)-1].Entity != 33 {
		t.Errorf("back = %d, want 33", got[len(got)-1].Entity)
	}
	for _, s := range got {
		if s.Entity == 1 {
			t.Error("sighting #1 still present")
		}
	}
	if q.MostRecentTimeSeen() != 330 {
		t.Errorf("MostRecentTimeSeen = %d, want 330", q.MostRecentTimeSeen())
	}
}

func TestEnemyQueue_EmptyAndInvalid(t *testing.T) {
	var q EnemyQueue
	if q.MostRecentTimeSeen() != TimeNever {
		t.Errorf("MostRecentTimeSeen = %d, want %d", q.MostRecentTimeSeen(), TimeNever)
	}
	q.Record(domain.NoEntity, 100)
	if q.Len() != 0 {
		t.Errorf("Len after invalid record = %d, want 0", q.Len())
	}
	if q.LastSeen(5) != TimeNever {
		t.Errorf("LastSeen = %d, want %d", q.LastSeen(5), TimeNever)
	}
}

func TestEnemyQueue_PruneStale(t *testing.T) {
	var q EnemyQueue
	q.Record(1, 100)
	q.Record(2, 200)
	q.Record(3, 900)
	q.Record(4, 950)

	dead := map[domain.EntityID]bool{3: true}
	alive := func(id domain.EntityID) bool { return !dead[id] }

	// 1と2は古く、3は消えている。4で止まる
	if n := q.PruneStale(1000, 500, alive); n != 3 {
		t.Errorf("removed = %d, want 3", n)
	}
	got := sightings(&q)
	if len(got) != 1 || got[0].Entity != 4 {
		t.Errorf("remaining = %+v, want [4]", got)
	}

	q.Clear()
	if q.Len() != 0 || q.MostRecentTimeSeen() != TimeNever {
		t.Errorf("Clear left Len = %d", q.Len())
	}
}

func TestEnemyQueue_RetainsMostRecentByInsertion(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ids := rapid.SliceOf(rapid.Uint32Range(0, 64)).Draw(t, "ids")

		var q EnemyQueue
		var model []Sighting
		for i, id := range ids {
			q.Record(domain.EntityID(id), int64(i))
			if id != 0 {
				model = append(model, Sighting{Entity: domain.EntityID(id), Seen: int64(i)})
			}
			if q.Len() > MaxEnemyQueue {
				t.Fatalf("Len = %d exceeds capacity", q.Len())
			}
		}
		if len(model) > MaxEnemyQueue {
			model = model[len(model)-MaxEnemyQueue:]
		}

		got := sightings(&q)
		if len(got) != len(model) {
			t.Fatalf("len = %d, want %d", len(got), len(model))
		}
		for i := range model {
			if got[i] != model[i] {
				t.Fatalf("entry %d = %+v, want %+v", i, got[i], model[i])
			}
		}
		want := TimeNever
		if len(model) > 0 {
			want = model[len(model)-1].Seen
		}
		if q.MostRecentTimeSeen() != want {
			t.Fatalf("MostRecentTimeSeen = %d, want %d", q.MostRecentTimeSeen(), want)
		}
	})
}
