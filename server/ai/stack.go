package ai

import "github.com/touka-aoi/tanzbot/internal/assert"

type frame struct {
	node  int
	child int
}

// Stack はボットごとの実行スタックです。ゼロ値で使えます。
// Runningで中断したノードの経路をルートから最深部まで保持します。
type Stack struct {
	owner  uint64
	frames [MaxNodeDepth]frame
	n      int
}

func (s *Stack) Len() int { return s.n }

// Reset は中断中の経路を破棄し、次のtickをルートから始めさせます。
func (s *Stack) Reset() {
	s.owner = 0
	s.n = 0
}

func (s *Stack) push(node int) bool {
	if !assert.That(s.n < MaxNodeDepth, "behavior stack overflow", "depth", s.n) {
		return false
	}
	s.frames[s.n] = frame{node: node}
	s.n++
	return true
}

func (s *Stack) pop() {
	s.n--
}

func (s *Stack) top() *frame {
	return &s.frames[s.n-1]
}
