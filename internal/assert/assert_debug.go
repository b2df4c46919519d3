//go:build botdebug

package assert

import "fmt"

const Enabled = true

func violate(msg string, args ...any) {
	panic(fmt.Sprintf("contract violation: %s %v", msg, args))
}
