package game

import (
	"math/rand/v2"
)

// MapGenerator 地图生成协作方：每次调用返回一张全新的地图
type MapGenerator interface {
	Generate() *Map
}

// StaticGenerator 始终返回同一张地图（测试、回放）
type StaticGenerator struct {
	Map *Map
}

// Generate 实现 MapGenerator
func (g StaticGenerator) Generate() *Map { return g.Map }

// RandomGenerator 随机墙体生成器。
// 生成结果保证：无 2×2 实心块、无 1 格宽缝隙、所有空格可达（直接或经跳跃弧线）。
type RandomGenerator struct {
	Width, Height int
	Walls         int // 包含四条边界墙
	MaxAttempts   int
	Rand          *rand.Rand
}

// NewRandomGenerator 默认 48×27、16 面墙
func NewRandomGenerator(seed uint64) *RandomGenerator {
	return &RandomGenerator{
		Width:       DefaultGridWidth,
		Height:      DefaultGridHeight,
		Walls:       16,
		MaxAttempts: 20000,
		Rand:        rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

type wall struct {
	x, y, size int
	horizontal bool
}

func (w wall) width() int {
	if w.horizontal {
		return w.size
	}
	return 1
}

func (w wall) height() int {
	if w.horizontal {
		return 1
	}
	return w.size
}

// intersects 仅对同方向墙体有意义：同一行（列）上区间相交或相邻
func (w wall) intersects(o wall) bool {
	if w.horizontal {
		return w.y == o.y &&
			!(w.x < o.x && w.x+w.width() < o.x ||
				w.x > o.x+o.width() && w.x+w.width() > o.x+o.width())
	}
	return w.x == o.x &&
		!(w.y < o.y && w.y+w.height() < o.y ||
			w.y > o.y+o.height() && w.y+w.height() > o.y+o.height())
}

// Generate 实现 MapGenerator；达到尝试上限时返回当前已放置的墙体
func (g *RandomGenerator) Generate() *Map {
	width, height := g.Width, g.Height
	walls := []wall{
		{0, 0, width, true},
		{0, height - 1, width, true},
		{0, 0, height, false},
		{width - 1, 0, height, false},
	}
	minW, maxW := float64(width)*0.3, float64(width)*0.5
	minH, maxH := float64(height)*0.3, float64(height)*0.5

	for attempt := 0; len(walls) < g.Walls && attempt < g.MaxAttempts; attempt++ {
		x := 1 + g.Rand.IntN(width-2)
		y := 1 + g.Rand.IntN(height-2)
		var w wall
		if g.Rand.Float64() < 0.7 {
			w = wall{x, y, int(max(g.Rand.Float64()*maxW, minW)), true}
		} else {
			w = wall{x, y, int(max(g.Rand.Float64()*maxH, minH)), false}
		}
		if x+w.width() > width || y+w.height() > height {
			continue
		}

		clash := false
		for _, o := range walls {
			if o.horizontal == w.horizontal && o.intersects(w) {
				clash = true
				break
			}
		}
		if clash {
			continue
		}

		walls = append(walls, w)
		if !validGrid(toGrid(walls, width, height)) {
			walls = walls[:len(walls)-1]
		}
	}

	m, _ := NewMap(width, height, toRowMajor(toGrid(walls, width, height)))
	return m
}

// toGrid 列优先 grid[x][y]
func toGrid(walls []wall, width, height int) [][]bool {
	grid := make([][]bool, width)
	for x := range grid {
		grid[x] = make([]bool, height)
	}
	for _, w := range walls {
		for x := w.x; x < w.x+w.width(); x++ {
			for y := w.y; y < w.y+w.height(); y++ {
				grid[x][y] = true
			}
		}
	}
	return grid
}

func toRowMajor(grid [][]bool) []bool {
	width, height := len(grid), len(grid[0])
	out := make([]bool, width*height)
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			out[y*width+x] = grid[x][y]
		}
	}
	return out
}

func validGrid(grid [][]bool) bool {
	width, height := len(grid), len(grid[0])
	var jumpLeft, jumpRight [][2]int

	for x := 0; x < width-1; x++ {
		for y := 0; y < height-1; y++ {
			a, b, c, d := grid[x][y], grid[x+1][y], grid[x][y+1], grid[x+1][y+1]
			if a && b && c && d {
				return false
			}
			// 右下有落脚点：需从左侧跳上去
			if !a && !b && !c && d {
				jumpLeft = append(jumpLeft, [2]int{x, y})
			}
			if !a && !b && c && !d {
				jumpRight = append(jumpRight, [2]int{x + 1, y})
			}
		}
	}

	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			if x+2 < width && grid[x][y] && !grid[x+1][y] && grid[x+2][y] {
				return false
			}
			if y+2 < height && grid[x][y] && !grid[x][y+1] && grid[x][y+2] {
				return false
			}
		}
	}

	for _, p := range jumpLeft {
		if !jumpable(p[0], p[1], grid, max(p[0]-6, 0), p[0]) {
			return false
		}
	}
	for _, p := range jumpRight {
		if !jumpable(p[0], p[1], grid, p[0], min(p[0]+6, width-1)) {
			return false
		}
	}

	return connected(grid)
}

// jumpable 在 [from, to] 列范围内，是否存在离平台 (x, y) 不超过 8 格的落脚高度
func jumpable(x, y int, grid [][]bool, from, to int) bool {
	height := len(grid[0])
	lowest := 10000
	for tx := from; tx <= to; tx++ {
		if grid[tx][y] {
			break
		}
		dist := x - tx
		if dist < 0 {
			dist = -dist
		}
		bottom := y + 1 + dist/2
		for bottom < height && !grid[tx][bottom] {
			bottom++
		}
		lowest = min(lowest, bottom-1-y)
	}
	return lowest <= 8
}

func connected(grid [][]bool) bool {
	width, height := len(grid), len(grid[0])
	seen := make([]bool, width*height)
	var open [][2]int

	for y := 0; y < height && len(open) == 0; y++ {
		for x := 0; x < width; x++ {
			if !grid[x][y] {
				open = append(open, [2]int{x, y})
				seen[y*width+x] = true
				break
			}
		}
	}

	for len(open) > 0 {
		p := open[len(open)-1]
		open = open[:len(open)-1]
		for _, n := range [4][2]int{{p[0] - 1, p[1]}, {p[0], p[1] - 1}, {p[0] + 1, p[1]}, {p[0], p[1] + 1}} {
			nx, ny := n[0], n[1]
			if nx < 0 || ny < 0 || nx >= width || ny >= height {
				continue
			}
			if !grid[nx][ny] && !seen[ny*width+nx] {
				seen[ny*width+nx] = true
				open = append(open, n)
			}
		}
	}

	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			if !grid[x][y] && !seen[y*width+x] {
				return false
			}
		}
	}
	return true
}
