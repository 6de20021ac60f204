package game

// CollisionKind 碰撞分类
type CollisionKind uint8

const (
	NoCollision CollisionKind = iota
	SideCollision
	CornerCollision
)

func (k CollisionKind) String() string {
	switch k {
	case SideCollision:
		return "side"
	case CornerCollision:
		return "corner"
	default:
		return "none"
	}
}

// Collision 解算结果。
// Side：X / Y 分别为单轴扫掠命中的第一个障碍（可同时存在）；
// Corner：单轴都未命中但对角扫掠命中，Cell 为命中的障碍。
type Collision struct {
	Kind CollisionKind
	X    *Rect
	Y    *Rect
	Cell *Rect
}

// Check 对实体的位移 (dx·dt, dy·dt) 做三次扫掠：仅 X、仅 Y、对角。
// 纯函数；obstacles 的迭代顺序决定同一次扫掠的命中对象。
func Check(b Body, obstacles []Rect, dt float64) Collision {
	r := b.Bounds()
	dx, dy := b.Velocity()
	mx, my := dx*dt, dy*dt

	hitX := firstHit(r.Translate(mx, 0), obstacles)
	hitY := firstHit(r.Translate(0, my), obstacles)
	if hitX != nil || hitY != nil {
		return Collision{Kind: SideCollision, X: hitX, Y: hitY}
	}
	if cell := firstHit(r.Translate(mx, my), obstacles); cell != nil {
		return Collision{Kind: CornerCollision, Cell: cell}
	}
	return Collision{Kind: NoCollision}
}

func firstHit(moved Rect, obstacles []Rect) *Rect {
	for i := range obstacles {
		if Collides(moved, obstacles[i]) {
			return &obstacles[i]
		}
	}
	return nil
}
