package ai

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// Library は名前で引けるコンパイル済みツリーの集合です。
// ロード後は読み取り専用で、複数のボットが同じツリーを共有します。
type Library[C any] struct {
	reg   *Registry[C]
	trees map[string]*Tree[C]
}

func NewLibrary[C any](reg *Registry[C]) *Library[C] {
	return &Library[C]{
		reg:   reg,
		trees: make(map[string]*Tree[C]),
	}
}

// Load はfsys内でpatternに一致するYAMLプロファイルをすべて読み込みます。
// nameを省略したプロファイルはファイル名（拡張子なし）が名前になります。
func (l *Library[C]) Load(fsys fs.FS, pattern string) error {
	files, err := fs.Glob(fsys, pattern)
	if err != nil {
		return err
	}
	sort.Strings(files)
	for _, file := range files {
		data, err := fs.ReadFile(fsys, file)
		if err != nil {
			return fmt.Errorf("read profile %s: %w", file, err)
		}
		base := strings.TrimSuffix(path.Base(file), path.Ext(file))
		p, err := ParseProfile(data, base)
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		if err := l.Add(p); err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
	}
	return nil
}

// Add はプロファイルをコンパイルして登録します。
func (l *Library[C]) Add(p Profile) error {
	if _, ok := l.trees[p.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateProfile, p.Name)
	}
	t, err := Compile(p.Name, p.Tree, l.reg)
	if err != nil {
		return err
	}
	l.trees[p.Name] = t
	return nil
}

func (l *Library[C]) Get(name string) (*Tree[C], bool) {
	t, ok := l.trees[name]
	return t, ok
}

// Names は登録済みプロファイル名を昇順で返します。
func (l *Library[C]) Names() []string {
	names := make([]string, 0, len(l.trees))
	for name := range l.trees {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
