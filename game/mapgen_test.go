package game

import "testing"

func gridOf(m *Map) [][]bool {
	grid := make([][]bool, m.Width())
	for x := range grid {
		grid[x] = make([]bool, m.Height())
		for y := range grid[x] {
			grid[x][y] = m.Occupied(x, y)
		}
	}
	return grid
}

func TestRandomGeneratorProducesValidMaps(t *testing.T) {
	for seed := uint64(1); seed <= 5; seed++ {
		m := NewRandomGenerator(seed).Generate()
		if m.Width() != DefaultGridWidth || m.Height() != DefaultGridHeight {
			t.Fatalf("seed %d: unexpected size %dx%d", seed, m.Width(), m.Height())
		}
		for x := 0; x < m.Width(); x++ {
			if !m.Occupied(x, 0) || !m.Occupied(x, m.Height()-1) {
				t.Fatalf("seed %d: missing horizontal border at column %d", seed, x)
			}
		}
		for y := 0; y < m.Height(); y++ {
			if !m.Occupied(0, y) || !m.Occupied(m.Width()-1, y) {
				t.Fatalf("seed %d: missing vertical border at row %d", seed, y)
			}
		}
		grid := gridOf(m)
		if !validGrid(grid) {
			t.Errorf("seed %d: generated map fails validation", seed)
		}
		if len(m.SpawnPoints(PlayerSize, PlayerSize)) == 0 {
			t.Errorf("seed %d: no spawn points", seed)
		}
	}
}

func TestRandomGeneratorDeterministic(t *testing.T) {
	a := NewRandomGenerator(42).Generate()
	b := NewRandomGenerator(42).Generate()
	if !a.Equal(b) {
		t.Fatal("same seed should produce the same map")
	}
}

func TestValidGridRules(t *testing.T) {
	empty := func() [][]bool {
		g := make([][]bool, 10)
		for x := range g {
			g[x] = make([]bool, 10)
		}
		return g
	}

	block := empty()
	block[4][4], block[5][4], block[4][5], block[5][5] = true, true, true, true
	if validGrid(block) {
		t.Error("2x2 block should be rejected")
	}

	gap := empty()
	gap[2][3], gap[4][3] = true, true
	if validGrid(gap) {
		t.Error("1-wide horizontal gap should be rejected")
	}

	sealed := empty()
	for x := 0; x < 10; x++ {
		sealed[x][5] = true
	}
	if validGrid(sealed) {
		t.Error("disconnected halves should be rejected")
	}

	if !validGrid(empty()) {
		t.Error("empty grid should be valid")
	}
}

func TestStaticGenerator(t *testing.T) {
	m := EmptyMap(4, 4)
	if got := (StaticGenerator{Map: m}).Generate(); got != m {
		t.Fatal("static generator should return its map")
	}
}
