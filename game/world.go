package game

import (
	"errors"
	"math/rand/v2"
	"slices"
	"strings"
)

// DefaultMaxShots 同时存活子弹上限
const DefaultMaxShots = 256

var (
	ErrNameTaken   = errors.New("game: name already taken")
	ErrPaletteFull = errors.New("game: no free color")
	ErrNoSpawn     = errors.New("game: no free spawn point")
)

// World 单一写者（Tick 线程）持有的模拟状态：地图、玩家、子弹。
// Authoritative 为 true 时（主机）负责生成子弹、结算伤害、标记脏数据；
// 否则（客户端副本）只做运动与反弹推算。
type World struct {
	Map           *Map
	Authoritative bool
	MaxShots      int
	Rand          *rand.Rand

	players  map[string]*Player
	shots    map[ShotID]*Shot
	retired  []*Shot
	nextShot uint32
	tick     uint64
}

// NewWorld 创建世界；m 为 nil 时使用默认尺寸的空地图
func NewWorld(m *Map, authoritative bool) *World {
	if m == nil {
		m = EmptyMap(DefaultGridWidth, DefaultGridHeight)
	}
	return &World{
		Map:           m,
		Authoritative: authoritative,
		MaxShots:      DefaultMaxShots,
		players:       make(map[string]*Player),
		shots:         make(map[ShotID]*Shot),
	}
}

// Tick 已推进的帧数
func (w *World) Tick() uint64 { return w.tick }

func (w *World) Player(name string) (*Player, bool) {
	p, ok := w.players[name]
	return p, ok
}

// Players 按名字排序
func (w *World) Players() []*Player {
	out := make([]*Player, 0, len(w.players))
	for _, p := range w.players {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b *Player) int { return strings.Compare(a.State.Name, b.State.Name) })
	return out
}

func (w *World) Shot(id ShotID) (*Shot, bool) {
	s, ok := w.shots[id]
	return s, ok
}

// Shots 按 (归属, 序号) 排序
func (w *World) Shots() []*Shot {
	out := make([]*Shot, 0, len(w.shots))
	for _, s := range w.shots {
		out = append(out, s)
	}
	sortShots(out)
	return out
}

func sortShots(shots []*Shot) {
	slices.SortFunc(shots, func(a, b *Shot) int {
		switch {
		case a.State.ID.less(b.State.ID):
			return -1
		case b.State.ID.less(a.State.ID):
			return 1
		}
		return 0
	})
}

// AliveCount lives > 0 的玩家数
func (w *World) AliveCount() int {
	n := 0
	for _, p := range w.players {
		if p.Alive() {
			n++
		}
	}
	return n
}

// ColorOf 玩家颜色；未知玩家返回 DefaultColor
func (w *World) ColorOf(name string) Color {
	if p, ok := w.players[name]; ok {
		return p.State.Color
	}
	return DefaultColor
}

// AddPlayer 注册新玩家：分配空闲颜色与出生点，并标记为脏
func (w *World) AddPlayer(name string) (*Player, error) {
	if _, ok := w.players[name]; ok {
		return nil, ErrNameTaken
	}
	used := make([]Color, 0, len(w.players))
	for _, p := range w.players {
		used = append(used, p.State.Color)
	}
	color, ok := FreeColor(used)
	if !ok {
		return nil, ErrPaletteFull
	}
	x, y, ok := w.pickSpawn(w.occupiedRects(""))
	if !ok {
		return nil, ErrNoSpawn
	}
	p := NewPlayer(name, x, y, color)
	p.Dirty = true
	w.players[name] = p
	return p, nil
}

// UpsertPlayer 副本端应用主机状态；玩家不存在时创建。
// 调用方决定是否覆盖本地玩家（见 server.Client）。
func (w *World) UpsertPlayer(state PlayerState, in Inputs) (*Player, bool) {
	if p, ok := w.players[state.Name]; ok {
		p.State = state
		p.Inputs = in
		return p, false
	}
	p := &Player{State: state, Inputs: in}
	w.players[state.Name] = p
	return p, true
}

// UpsertShot 按 ShotID 插入或覆盖；lives 为 0 则移除
func (w *World) UpsertShot(state ShotState) (*Shot, bool) {
	if state.Lives == 0 {
		delete(w.shots, state.ID)
		return nil, false
	}
	if s, ok := w.shots[state.ID]; ok {
		s.State = state
		return s, false
	}
	s := &Shot{State: state}
	w.shots[state.ID] = s
	return s, true
}

// SetMap 整体替换地图
func (w *World) SetMap(m *Map) {
	w.Map = m
}

// ResetRound 换局：替换地图，所有玩家满血重生，所有子弹 lives 置 0（下一帧清除）
func (w *World) ResetRound(m *Map) {
	w.Map = m
	var taken []Rect
	for _, p := range w.Players() {
		p.State.Lives = MaxLives
		p.State.DX, p.State.DY = 0, 0
		p.OnGround = false
		p.HasDoubleJump = false
		if x, y, ok := w.pickSpawn(taken); ok {
			p.State.X, p.State.Y = x, y
		}
		taken = append(taken, p.Bounds())
		p.Dirty = true
	}
	for _, s := range w.shots {
		s.State.Lives = 0
		s.Dirty = true
	}
}

// Step 推进一帧：先玩家（受力 → 碰撞 → 伤害 → 位移），再子弹（生成 → 清理 → 碰撞 → 位移）
func (w *World) Step(dt float64) {
	w.tick++
	obstacles := w.Map.Obstacles()

	for _, p := range w.Players() {
		if !p.Alive() {
			continue
		}
		before := p.sig()
		p.applyForces(dt)
		p.resolve(obstacles, dt)
		if w.Authoritative {
			w.damage(p)
		}
		p.integrate(dt)
		if w.Authoritative && p.sig() != before {
			p.Dirty = true
		}
	}

	if w.Authoritative {
		w.spawnShots()
	}
	for id, s := range w.shots {
		if s.Expired() {
			if w.Authoritative && s.Dirty {
				w.retired = append(w.retired, s)
			}
			delete(w.shots, id)
		}
	}
	for _, s := range w.Shots() {
		if s.bounce(obstacles, dt) && w.Authoritative {
			s.Dirty = true
		}
		s.integrate(dt)
	}
}

// damage 与玩家重叠的他人子弹：子弹 lives 置 0，玩家扣一命
func (w *World) damage(p *Player) {
	for _, s := range w.Shots() {
		if !p.Alive() {
			return
		}
		if s.State.Lives == 0 || s.State.ID.Owner == p.State.Name {
			continue
		}
		if Collides(p.Bounds(), s.Bounds()) {
			s.State.Lives = 0
			s.Dirty = true
			p.State.Lives--
		}
	}
}

func (w *World) spawnShots() {
	for _, p := range w.Players() {
		if !p.Alive() || !p.Inputs.Shoot {
			continue
		}
		p.Inputs.Shoot = false
		if w.MaxShots > 0 && len(w.shots) >= w.MaxShots {
			continue
		}
		s := SpawnShot(w.nextShot, p)
		if w.Map.Blocked(s.Bounds()) {
			continue
		}
		w.nextShot++
		s.Dirty = true
		w.shots[s.State.ID] = s
	}
}

// DirtyPlayers 自上次 ClearDirty 以来状态变化的玩家
func (w *World) DirtyPlayers() []*Player {
	var out []*Player
	for _, p := range w.Players() {
		if p.Dirty {
			out = append(out, p)
		}
	}
	return out
}

// DirtyShots 包括本帧已被清理、但终态尚未广播的子弹
func (w *World) DirtyShots() []*Shot {
	out := append([]*Shot(nil), w.retired...)
	for _, s := range w.Shots() {
		if s.Dirty {
			out = append(out, s)
		}
	}
	return out
}

// ClearDirty 广播完成后调用
func (w *World) ClearDirty() {
	for _, p := range w.players {
		p.Dirty = false
	}
	for _, s := range w.shots {
		s.Dirty = false
	}
	w.retired = w.retired[:0]
}

func (w *World) occupiedRects(except string) []Rect {
	var out []Rect
	for _, p := range w.Players() {
		if p.State.Name != except {
			out = append(out, p.Bounds())
		}
	}
	return out
}

// pickSpawn 选择不与 taken 重叠的出生点；有 Rand 时随机，否则取第一个
func (w *World) pickSpawn(taken []Rect) (float64, float64, bool) {
	var free [][2]float64
	for _, pt := range w.Map.SpawnPoints(PlayerSize, PlayerSize) {
		r := Rect{X: pt[0], Y: pt[1], W: PlayerSize, H: PlayerSize}
		if !slices.ContainsFunc(taken, func(o Rect) bool { return Collides(r, o) }) {
			free = append(free, pt)
		}
	}
	if len(free) == 0 {
		return 0, 0, false
	}
	pt := free[0]
	if w.Rand != nil {
		pt = free[w.Rand.IntN(len(free))]
	}
	return pt[0], pt[1], true
}
