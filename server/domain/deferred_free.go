package domain

// FreeTime はエンティティを解放するフレーム内のタイミングです。
// 同時に有効になるのは常にひとつだけです。
type FreeTime uint8

const (
	DontFree FreeTime = iota
	FreeBeforeThinking
	FreeAfterThinking
)

func (f FreeTime) String() string {
	switch f {
	case DontFree:
		return "dont_free"
	case FreeBeforeThinking:
		return "free_before_thinking"
	case FreeAfterThinking:
		return "free_after_thinking"
	default:
		return "unknown"
	}
}

// DeferredFree はエンティティの遅延解放コンポーネントです。
// エンティティを直接破棄せず、スケジューラが1フレームに1回FreeTimeを問い合わせます。
type DeferredFree struct {
	freeTime FreeTime
}

// FreeAt は解放タイミングを設定します。DontFreeを渡すと解除されます。
func (d *DeferredFree) FreeAt(t FreeTime) {
	if t > FreeAfterThinking {
		return
	}
	d.freeTime = t
}

// FreeTime は現在の解放タイミングを返します。
func (d *DeferredFree) FreeTime() FreeTime {
	return d.freeTime
}

// Due は指定したタイミングで解放すべきかを返します。
func (d *DeferredFree) Due(at FreeTime) bool {
	return at != DontFree && d.freeTime == at
}
