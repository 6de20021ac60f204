package game

import (
	"fmt"
	"math"
)

const (
	ShotSize          = 15.0
	ShotSpeed         = 800.0
	ShotSpawnDistance = 20.0
	ShotLives         = 5
)

// ShotID 复合键：同一玩家内递增序号 + 归属玩家名
type ShotID struct {
	Seq   uint32 `json:"seq" msgpack:"q"`
	Owner string `json:"owner" msgpack:"o"`
}

func (id ShotID) String() string {
	return fmt.Sprintf("%s#%d", id.Owner, id.Seq)
}

func (id ShotID) less(o ShotID) bool {
	if id.Owner != o.Owner {
		return id.Owner < o.Owner
	}
	return id.Seq < o.Seq
}

// ShotState 需要复制的子弹状态
type ShotState struct {
	ID    ShotID  `json:"id" msgpack:"id"`
	X     float64 `json:"x" msgpack:"x"`
	Y     float64 `json:"y" msgpack:"y"`
	W     float64 `json:"w" msgpack:"w"`
	H     float64 `json:"h" msgpack:"h"`
	DX    float64 `json:"dx" msgpack:"dx"`
	DY    float64 `json:"dy" msgpack:"dy"`
	Lives uint8   `json:"lives" msgpack:"lv"`
	Color Color   `json:"color" msgpack:"c"`
}

// Shot 子弹实体
type Shot struct {
	State ShotState
	Dirty bool
}

// SpawnShot 朝玩家光标方向发射：子弹中心位于玩家中心沿射击方向 20 单位处
func SpawnShot(seq uint32, p *Player) *Shot {
	cx, cy := p.Bounds().Center()
	angle := math.Atan2(p.Inputs.MouseY-cy, p.Inputs.MouseX-cx)
	dirX, dirY := math.Cos(angle), math.Sin(angle)
	return &Shot{
		State: ShotState{
			ID:    ShotID{Seq: seq, Owner: p.State.Name},
			X:     cx + dirX*ShotSpawnDistance - ShotSize/2,
			Y:     cy + dirY*ShotSpawnDistance - ShotSize/2,
			W:     ShotSize,
			H:     ShotSize,
			DX:    dirX * ShotSpeed,
			DY:    dirY * ShotSpeed,
			Lives: ShotLives,
			Color: p.State.Color,
		},
	}
}

func (s *Shot) Bounds() Rect {
	return Rect{X: s.State.X, Y: s.State.Y, W: s.State.W, H: s.State.H}
}

func (s *Shot) Velocity() (float64, float64) {
	return s.State.DX, s.State.DY
}

// Expired 反弹次数耗尽或飞出世界
func (s *Shot) Expired() bool {
	return s.State.Lives == 0 || !Collides(s.Bounds(), WorldBounds)
}

// bounce 碰撞则翻转对应轴速度并扣一次反弹次数，返回是否发生碰撞
func (s *Shot) bounce(obstacles []Rect, dt float64) bool {
	c := Check(s, obstacles, dt)
	switch c.Kind {
	case SideCollision:
		if c.X != nil {
			s.State.DX = -s.State.DX
		}
		if c.Y != nil {
			s.State.DY = -s.State.DY
		}
	case CornerCollision:
		s.State.DX = -s.State.DX
		s.State.DY = -s.State.DY
	default:
		return false
	}
	if s.State.Lives > 0 {
		s.State.Lives--
	}
	return true
}

func (s *Shot) integrate(dt float64) {
	s.State.X += s.State.DX * dt
	s.State.Y += s.State.DY * dt
}
