package application

import (
	"embed"
	"fmt"
	"os"

	"github.com/touka-aoi/tanzbot/server/ai"
)

//go:embed profiles/*.yaml
var builtinProfiles embed.FS

// DefaultBehavior はビヘイビア未指定時に使うプロファイル名です。
const DefaultBehavior = "default"

// Behaviors はボットのビヘイビアプロファイルの集合です。
type Behaviors = ai.Library[*Bot]

// LoadBehaviors は組み込みプロファイルと、dirが空でなければそのディレクトリの *.yaml を読み込みます。
func LoadBehaviors(dir string) (*Behaviors, error) {
	lib := ai.NewLibrary(NewRegistry())
	if err := lib.Load(builtinProfiles, "profiles/*.yaml"); err != nil {
		return nil, fmt.Errorf("load builtin profiles: %w", err)
	}
	if dir != "" {
		if err := lib.Load(os.DirFS(dir), "*.yaml"); err != nil {
			return nil, fmt.Errorf("load profiles from %s: %w", dir, err)
		}
	}
	return lib, nil
}
