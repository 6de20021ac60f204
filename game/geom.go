package game

const (
	// WorldWidth / WorldHeight 逻辑世界尺寸，与网格分辨率无关
	WorldWidth  = 1920.0
	WorldHeight = 1080.0
)

// Rect 轴对齐包围盒（左上角 + 宽高）
type Rect struct {
	X, Y, W, H float64
}

// Body 参与碰撞解算的实体：玩家与子弹共用
type Body interface {
	Bounds() Rect
	Velocity() (dx, dy float64)
}

// WorldBounds 子弹存活区域
var WorldBounds = Rect{X: 0, Y: 0, W: WorldWidth, H: WorldHeight}

// Collides 严格不等式：仅边缘接触不算碰撞
func Collides(a, b Rect) bool {
	return a.X < b.X+b.W && a.X+a.W > b.X && a.Y < b.Y+b.H && a.Y+a.H > b.Y
}

// Translate 返回平移后的副本
func (r Rect) Translate(dx, dy float64) Rect {
	r.X += dx
	r.Y += dy
	return r
}

// Center 中心点
func (r Rect) Center() (float64, float64) {
	return r.X + r.W/2, r.Y + r.H/2
}
