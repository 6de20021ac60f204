package server

import "battle2d/game"

// InputSource 本地输入采集（键盘/鼠标由外部实现）。
// Poll 每帧调用一次，返回当前输入快照与“是否有变化”。
type InputSource interface {
	Poll() (game.Inputs, bool)
}

// ScriptedInput 按帧回放的输入序列（测试与无界面演示）。
// 序列结束后保持最后一帧的方向与光标，边沿输入不再触发。
type ScriptedInput struct {
	frames []game.Inputs
	next   int
	last   game.Inputs
}

func NewScriptedInput(frames ...game.Inputs) *ScriptedInput {
	return &ScriptedInput{frames: frames}
}

func (s *ScriptedInput) Poll() (game.Inputs, bool) {
	in := s.last
	in.Jump, in.Shoot = false, false
	if s.next < len(s.frames) {
		in = s.frames[s.next]
		s.next++
	}
	changed := in != s.last
	s.last = in
	return in, changed
}

// Done 序列是否已播放完
func (s *ScriptedInput) Done() bool {
	return s.next >= len(s.frames)
}

// mergeInputs 以新输入为准，但边沿输入保持到被模拟消费为止
func mergeInputs(old, in game.Inputs) game.Inputs {
	in.Jump = in.Jump || old.Jump
	in.Shoot = in.Shoot || old.Shoot
	return in
}

// significantChange 按键变化，或按住射击时光标移动
func significantChange(old, in game.Inputs) bool {
	if old.Left != in.Left || old.Right != in.Right || old.Jump != in.Jump || old.Shoot != in.Shoot {
		return true
	}
	return in.Shoot && (old.MouseX != in.MouseX || old.MouseY != in.MouseY)
}
