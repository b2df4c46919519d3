package ai

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidNode      = errors.New("node must set exactly one of sequence, selector, not, condition, action")
	ErrUnknownCondition = errors.New("unknown condition")
	ErrUnknownAction    = errors.New("unknown action")
	ErrTreeTooDeep      = errors.New("behavior tree exceeds max node depth")
	ErrInvalidProfile   = errors.New("invalid behavior profile")
	ErrDuplicateProfile = errors.New("duplicate behavior profile")
)

// NodeDef はYAMLで記述されたノード定義です。どれかひとつのフィールドだけを設定します。
//
//	selector:
//	  - sequence:
//	      - condition: hasEnemy
//	      - action: fight
//	  - action: roam
type NodeDef struct {
	Sequence  []NodeDef `yaml:"sequence,omitempty"`
	Selector  []NodeDef `yaml:"selector,omitempty"`
	Not       *NodeDef  `yaml:"not,omitempty"`
	Condition string    `yaml:"condition,omitempty"`
	Action    string    `yaml:"action,omitempty"`
}

func (d *NodeDef) kind() (nodeKind, error) {
	var k nodeKind
	n := 0
	if len(d.Sequence) > 0 {
		k, n = kindSequence, n+1
	}
	if len(d.Selector) > 0 {
		k, n = kindSelector, n+1
	}
	if d.Not != nil {
		k, n = kindInverter, n+1
	}
	if d.Condition != "" {
		k, n = kindCondition, n+1
	}
	if d.Action != "" {
		k, n = kindAction, n+1
	}
	if n != 1 {
		return 0, ErrInvalidNode
	}
	return k, nil
}

// Profile は名前付きのビヘイビアプロファイルです。
type Profile struct {
	Name string  `yaml:"name"`
	Tree NodeDef `yaml:"tree"`
}

// ParseProfile はYAMLからProfileを読みます。nameが省略されていればfallbackNameを使います。
func ParseProfile(data []byte, fallbackName string) (Profile, error) {
	var p Profile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return Profile{}, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	if p.Name == "" {
		p.Name = fallbackName
	}
	if p.Name == "" {
		return Profile{}, fmt.Errorf("%w: missing name", ErrInvalidProfile)
	}
	return p, nil
}
