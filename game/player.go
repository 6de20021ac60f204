package game

import "math"

const (
	PlayerSize = 20.0
	MaxLives   = 20

	RunSpeed        = 300.0
	GroundFriction  = 16.0
	AirFriction     = 4.0
	Gravity         = 1000.0
	JumpSpeed       = 805.0
	DoubleJumpSpeed = 405.0

	// 低于该值的水平速度直接归零
	restingSpeed = 0.01
)

// Inputs 玩家输入。Jump / Shoot 为边沿输入：被模拟观察到即消费。
type Inputs struct {
	Left   bool    `json:"left" msgpack:"l"`
	Right  bool    `json:"right" msgpack:"r"`
	Jump   bool    `json:"jump" msgpack:"j"`
	Shoot  bool    `json:"shoot" msgpack:"s"`
	MouseX float64 `json:"mouseX" msgpack:"mx"`
	MouseY float64 `json:"mouseY" msgpack:"my"`
}

// PlayerState 需要复制到客户端的玩家状态
type PlayerState struct {
	Name  string  `json:"name" msgpack:"n"`
	X     float64 `json:"x" msgpack:"x"`
	Y     float64 `json:"y" msgpack:"y"`
	W     float64 `json:"w" msgpack:"w"`
	H     float64 `json:"h" msgpack:"h"`
	DX    float64 `json:"dx" msgpack:"dx"`
	DY    float64 `json:"dy" msgpack:"dy"`
	Lives uint8   `json:"lives" msgpack:"lv"`
	Color Color   `json:"color" msgpack:"c"`
}

// Player 玩家实体。OnGround / HasDoubleJump / Dirty 仅本地运行期使用，不复制。
type Player struct {
	State  PlayerState
	Inputs Inputs

	OnGround      bool
	HasDoubleJump bool
	Dirty         bool
}

// NewPlayer 满血、静止、空中状态
func NewPlayer(name string, x, y float64, color Color) *Player {
	return &Player{
		State: PlayerState{
			Name:  name,
			X:     x,
			Y:     y,
			W:     PlayerSize,
			H:     PlayerSize,
			Lives: MaxLives,
			Color: color,
		},
	}
}

func (p *Player) Bounds() Rect {
	return Rect{X: p.State.X, Y: p.State.Y, W: p.State.W, H: p.State.H}
}

func (p *Player) Velocity() (float64, float64) {
	return p.State.DX, p.State.DY
}

// Alive lives 为 0 的玩家冻结，直到换局
func (p *Player) Alive() bool {
	return p.State.Lives > 0
}

// applyForces 输入 → 速度
func (p *Player) applyForces(dt float64) {
	s := &p.State
	switch {
	case p.Inputs.Left && !p.Inputs.Right:
		s.DX = math.Min(s.DX, -RunSpeed)
	case p.Inputs.Right && !p.Inputs.Left:
		s.DX = math.Max(s.DX, RunSpeed)
	default:
		friction := AirFriction
		if p.OnGround {
			friction = GroundFriction
		}
		s.DX -= s.DX * math.Min(friction*dt, 1)
		if math.Abs(s.DX) < restingSpeed {
			s.DX = 0
		}
	}

	jumped := false
	if p.Inputs.Jump {
		p.Inputs.Jump = false
		switch {
		case p.OnGround:
			s.DY = math.Min(s.DY, -JumpSpeed)
			jumped = true
		case p.HasDoubleJump:
			p.HasDoubleJump = false
			s.DY = math.Min(s.DY, -DoubleJumpSpeed)
			jumped = true
		}
	}
	if !jumped {
		s.DY += Gravity * dt
	}
}

// resolve 根据碰撞结果修正速度与落地状态
func (p *Player) resolve(obstacles []Rect, dt float64) {
	s := &p.State
	c := Check(p, obstacles, dt)
	switch c.Kind {
	case SideCollision:
		if c.X != nil {
			s.DX = 0
		}
		if c.Y != nil {
			if s.DY > 0 {
				p.land(c.Y)
			}
			s.DY = 0
		} else {
			p.OnGround = false
		}
	case CornerCollision:
		s.DX = 0
		if s.DY > 0 {
			p.land(c.Cell)
			s.DY = 0
		} else {
			p.OnGround = false
		}
	default:
		p.OnGround = false
	}
}

func (p *Player) land(cell *Rect) {
	p.State.Y = cell.Y - p.State.H
	p.OnGround = true
	p.HasDoubleJump = true
}

func (p *Player) integrate(dt float64) {
	p.State.X += p.State.DX * dt
	p.State.Y += p.State.DY * dt
}

type playerSig struct {
	state  PlayerState
	inputs Inputs
}

func (p *Player) sig() playerSig {
	return playerSig{state: p.State, inputs: p.Inputs}
}
