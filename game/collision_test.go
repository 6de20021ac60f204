package game

import "testing"

type box struct {
	r      Rect
	dx, dy float64
}

func (b box) Bounds() Rect                 { return b.r }
func (b box) Velocity() (float64, float64) { return b.dx, b.dy }

func TestCollidesSymmetric(t *testing.T) {
	cases := []struct {
		name string
		a, b Rect
		want bool
	}{
		{"overlap", Rect{0, 0, 10, 10}, Rect{5, 5, 10, 10}, true},
		{"contained", Rect{0, 0, 40, 40}, Rect{10, 10, 5, 5}, true},
		{"apart", Rect{0, 0, 10, 10}, Rect{20, 20, 10, 10}, false},
		{"touch right edge", Rect{0, 0, 10, 10}, Rect{10, 0, 10, 10}, false},
		{"touch bottom edge", Rect{0, 0, 10, 10}, Rect{0, 10, 10, 10}, false},
		{"touch corner", Rect{0, 0, 10, 10}, Rect{10, 10, 10, 10}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Collides(tc.a, tc.b); got != tc.want {
				t.Errorf("Collides(a, b) = %v, want %v", got, tc.want)
			}
			if got := Collides(tc.b, tc.a); got != tc.want {
				t.Errorf("Collides(b, a) = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCheckNoCollision(t *testing.T) {
	b := box{r: Rect{0, 0, 10, 10}, dx: 100}
	c := Check(b, []Rect{{50, 50, 10, 10}}, 0.1)
	if c.Kind != NoCollision {
		t.Fatalf("expected no collision, got %v", c.Kind)
	}
}

func TestCheckSideX(t *testing.T) {
	b := box{r: Rect{0, 0, 10, 10}, dx: 100}
	wall := Rect{15, 0, 10, 10}
	c := Check(b, []Rect{wall}, 0.1)
	if c.Kind != SideCollision {
		t.Fatalf("expected side collision, got %v", c.Kind)
	}
	if c.X == nil || *c.X != wall {
		t.Errorf("expected X hit on %v, got %v", wall, c.X)
	}
	if c.Y != nil {
		t.Errorf("expected no Y hit, got %v", *c.Y)
	}
}

func TestCheckSideBothAxes(t *testing.T) {
	b := box{r: Rect{20, 20, 10, 10}, dx: 100, dy: 100}
	right := Rect{35, 20, 10, 10}
	below := Rect{20, 35, 10, 10}
	c := Check(b, []Rect{right, below}, 0.1)
	if c.Kind != SideCollision || c.X == nil || c.Y == nil {
		t.Fatalf("expected side collision on both axes, got %+v", c)
	}
	if *c.X != right || *c.Y != below {
		t.Errorf("wrong obstacles: x=%v y=%v", *c.X, *c.Y)
	}
}

func TestCheckCorner(t *testing.T) {
	b := box{r: Rect{0, 0, 10, 10}, dx: 100, dy: 100}
	cell := Rect{15, 15, 10, 10}
	c := Check(b, []Rect{cell}, 0.1)
	if c.Kind != CornerCollision {
		t.Fatalf("expected corner collision, got %v", c.Kind)
	}
	if c.Cell == nil || *c.Cell != cell {
		t.Errorf("expected corner cell %v, got %v", cell, c.Cell)
	}
}

func TestCheckReportsFirstObstacle(t *testing.T) {
	b := box{r: Rect{0, 0, 10, 10}, dx: 200}
	first := Rect{12, 0, 10, 10}
	second := Rect{15, 0, 10, 10}
	c := Check(b, []Rect{first, second}, 0.1)
	if c.X == nil || *c.X != first {
		t.Fatalf("expected first obstacle in order, got %v", c.X)
	}
}

func TestCheckZeroDtDetectsOverlap(t *testing.T) {
	b := box{r: Rect{0, 0, 10, 10}}
	c := Check(b, []Rect{{5, 5, 10, 10}}, 0)
	if c.Kind != SideCollision || c.X == nil || c.Y == nil {
		t.Fatalf("expected overlap on both sweeps, got %+v", c)
	}
}
