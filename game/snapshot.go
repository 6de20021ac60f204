package game

// Snapshot 某一帧世界的只读值拷贝，供渲染与管理接口在其他 goroutine 读取。
// 坐标均为世界坐标（0–1920 × 0–1080）。
type Snapshot struct {
	Tick      uint64        `json:"tick"`
	MapWidth  int           `json:"mapWidth"`
	MapHeight int           `json:"mapHeight"`
	Players   []PlayerState `json:"players"`
	Shots     []ShotState   `json:"shots"`

	// Map 不可变，直接共享
	Map *Map `json:"-"`
}

// Snapshot 拷贝当前状态（按名字 / ShotID 排序）
func (w *World) Snapshot() *Snapshot {
	s := &Snapshot{
		Tick:      w.tick,
		MapWidth:  w.Map.Width(),
		MapHeight: w.Map.Height(),
		Players:   make([]PlayerState, 0, len(w.players)),
		Shots:     make([]ShotState, 0, len(w.shots)),
		Map:       w.Map,
	}
	for _, p := range w.Players() {
		s.Players = append(s.Players, p.State)
	}
	for _, sh := range w.Shots() {
		s.Shots = append(s.Shots, sh.State)
	}
	return s
}

// Alive lives > 0 的玩家数
func (s *Snapshot) Alive() int {
	n := 0
	for _, p := range s.Players {
		if p.Lives > 0 {
			n++
		}
	}
	return n
}
