package game

import "fmt"

const (
	// DefaultGridWidth / DefaultGridHeight 默认网格：48×27，每格 40×40
	DefaultGridWidth  = 48
	DefaultGridHeight = 27
)

// Cell 由网格按需推导的瞬时值对象
type Cell struct {
	X, Y, W, H float64
	Occupied   bool
}

// Bounds 格子矩形
func (c Cell) Bounds() Rect {
	return Rect{X: c.X, Y: c.Y, W: c.W, H: c.H}
}

// Map 一局内不可变的瓦片占用网格（行优先存储）。
// 换局时整体替换，不做增量修改。
type Map struct {
	width, height int
	cells         []bool

	obstacles []Rect
}

// NewMap 从行优先的占用数组构造地图；cells 长度必须为 width*height
func NewMap(width, height int, cells []bool) (*Map, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("map: invalid size %dx%d", width, height)
	}
	if len(cells) != width*height {
		return nil, fmt.Errorf("map: got %d cells, want %d", len(cells), width*height)
	}
	m := &Map{
		width:  width,
		height: height,
		cells:  append([]bool(nil), cells...),
	}
	m.obstacles = m.collectObstacles()
	return m, nil
}

// EmptyMap 无任何障碍的地图（观战端在收到 SetMap 之前使用）
func EmptyMap(width, height int) *Map {
	m, _ := NewMap(width, height, make([]bool, width*height))
	return m
}

// Width 网格列数
func (m *Map) Width() int { return m.width }

// Height 网格行数
func (m *Map) Height() int { return m.height }

// CellSize 单个格子在世界坐标中的宽高
func (m *Map) CellSize() (float64, float64) {
	return WorldWidth / float64(m.width), WorldHeight / float64(m.height)
}

// Occupied 越界视为空
func (m *Map) Occupied(gx, gy int) bool {
	if gx < 0 || gy < 0 || gx >= m.width || gy >= m.height {
		return false
	}
	return m.cells[gy*m.width+gx]
}

// Cells 行优先占用数组副本
func (m *Map) Cells() []bool {
	return append([]bool(nil), m.cells...)
}

// Cell 网格坐标处的格子
func (m *Map) Cell(gx, gy int) Cell {
	cw, ch := m.CellSize()
	return Cell{
		X:        float64(gx) * cw,
		Y:        float64(gy) * ch,
		W:        cw,
		H:        ch,
		Occupied: m.Occupied(gx, gy),
	}
}

// GridCoords 世界坐标 → 网格坐标（截断）
func (m *Map) GridCoords(x, y float64) (int, int) {
	return int(x / WorldWidth * float64(m.width)), int(y / WorldHeight * float64(m.height))
}

// CellAt 世界坐标处的格子
func (m *Map) CellAt(x, y float64) Cell {
	gx, gy := m.GridCoords(x, y)
	return m.Cell(gx, gy)
}

// Obstacles 所有被占用格子的矩形，行优先顺序。调用方不得修改。
func (m *Map) Obstacles() []Rect {
	return m.obstacles
}

// CellsAround (x, y) 所在格及其 8 邻格中被占用的格子
func (m *Map) CellsAround(x, y float64) []Cell {
	gx, gy := m.GridCoords(x, y)
	var out []Cell
	for cy := gy - 1; cy <= gy+1; cy++ {
		for cx := gx - 1; cx <= gx+1; cx++ {
			if m.Occupied(cx, cy) {
				out = append(out, m.Cell(cx, cy))
			}
		}
	}
	return out
}

// SpawnPoints 能放下 w×h 实体的空格子左上角坐标（行优先）
func (m *Map) SpawnPoints(w, h float64) [][2]float64 {
	var out [][2]float64
	for gy := 0; gy < m.height; gy++ {
		for gx := 0; gx < m.width; gx++ {
			if m.Occupied(gx, gy) {
				continue
			}
			c := m.Cell(gx, gy)
			r := Rect{X: c.X + (c.W-w)/2, Y: c.Y + (c.H-h)/2, W: w, H: h}
			if !m.Blocked(r) {
				out = append(out, [2]float64{r.X, r.Y})
			}
		}
	}
	return out
}

// Blocked 矩形是否与任意障碍重叠
func (m *Map) Blocked(r Rect) bool {
	return firstHit(r, m.obstacles) != nil
}

// Equal 尺寸与占用完全一致
func (m *Map) Equal(o *Map) bool {
	if m == nil || o == nil {
		return m == o
	}
	if m.width != o.width || m.height != o.height {
		return false
	}
	for i := range m.cells {
		if m.cells[i] != o.cells[i] {
			return false
		}
	}
	return true
}

func (m *Map) collectObstacles() []Rect {
	var out []Rect
	for gy := 0; gy < m.height; gy++ {
		for gx := 0; gx < m.width; gx++ {
			if m.cells[gy*m.width+gx] {
				out = append(out, m.Cell(gx, gy).Bounds())
			}
		}
	}
	return out
}
