package game

// Color RGBA，分量 0..1
type Color [4]float32

// DefaultColor 子弹归属玩家未知时的兜底颜色
var DefaultColor = Color{0.5, 0.5, 0.5, 1}

// Palette 玩家可分配的颜色，活跃玩家之间互不重复
var Palette = []Color{
	{0.90, 0.20, 0.20, 1},
	{0.20, 0.60, 0.95, 1},
	{0.25, 0.80, 0.30, 1},
	{0.95, 0.80, 0.15, 1},
	{0.70, 0.30, 0.90, 1},
	{0.95, 0.50, 0.10, 1},
	{0.15, 0.85, 0.80, 1},
	{0.95, 0.40, 0.70, 1},
}

// FreeColor 返回第一个未被占用的调色板颜色
func FreeColor(used []Color) (Color, bool) {
next:
	for _, c := range Palette {
		for _, u := range used {
			if u == c {
				continue next
			}
		}
		return c, true
	}
	return Color{}, false
}
