//go:build !botdebug

package assert

import "log/slog"

// Enabled は違反時に panic するビルドかどうかです。
const Enabled = false

func violate(msg string, args ...any) {
	slog.Error("contract violation: "+msg, args...)
}
