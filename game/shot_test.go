package game

import (
	"math"
	"testing"
)

func TestSpawnShotTowardsCursor(t *testing.T) {
	p := NewPlayer("a", 100, 100, Palette[2])
	p.Inputs.MouseX, p.Inputs.MouseY = 400, 110

	s := SpawnShot(7, p)
	if s.State.ID != (ShotID{Seq: 7, Owner: "a"}) {
		t.Errorf("unexpected id %v", s.State.ID)
	}
	if s.State.X != 122.5 || s.State.Y != 102.5 {
		t.Errorf("expected shot at (122.5, 102.5), got (%v, %v)", s.State.X, s.State.Y)
	}
	if s.State.DX != ShotSpeed || s.State.DY != 0 {
		t.Errorf("expected velocity (%v, 0), got (%v, %v)", ShotSpeed, s.State.DX, s.State.DY)
	}
	if s.State.Lives != ShotLives || s.State.Color != Palette[2] {
		t.Errorf("unexpected lives/color: %d %v", s.State.Lives, s.State.Color)
	}

	p.Inputs.MouseX, p.Inputs.MouseY = 110, 0
	up := SpawnShot(8, p)
	if math.Abs(up.State.DX) > 1e-9 || math.Abs(up.State.DY+ShotSpeed) > 1e-9 {
		t.Errorf("expected upward shot, got (%v, %v)", up.State.DX, up.State.DY)
	}
}

func TestShotSideBounceFlipsCollidingAxisOnly(t *testing.T) {
	s := &Shot{State: ShotState{X: 100, Y: 100, W: ShotSize, H: ShotSize, DX: ShotSpeed, DY: 200, Lives: ShotLives}}
	wall := Rect{120, 0, 40, 400}

	if !s.bounce([]Rect{wall}, dt) {
		t.Fatal("expected a collision")
	}
	if s.State.DX != -ShotSpeed {
		t.Errorf("expected dx flipped, got %v", s.State.DX)
	}
	if s.State.DY != 200 {
		t.Errorf("expected dy unchanged, got %v", s.State.DY)
	}
	if s.State.Lives != ShotLives-1 {
		t.Errorf("expected lives %d, got %d", ShotLives-1, s.State.Lives)
	}
}

func TestShotCornerBounceFlipsBothAxes(t *testing.T) {
	s := &Shot{State: ShotState{X: 0, Y: 0, W: 10, H: 10, DX: 100, DY: 100, Lives: 1}}
	s.bounce([]Rect{{15, 15, 10, 10}}, 0.1)
	if s.State.DX != -100 || s.State.DY != -100 || s.State.Lives != 0 {
		t.Fatalf("unexpected state %+v", s.State)
	}
	if !s.Expired() {
		t.Error("shot with no lives left should be expired")
	}
}

func TestShotExpiresOutsideWorld(t *testing.T) {
	s := &Shot{State: ShotState{X: -20, Y: 100, W: ShotSize, H: ShotSize, Lives: 3}}
	if !s.Expired() {
		t.Fatal("shot left of the world should be expired")
	}
	s.State.X = 0
	if s.Expired() {
		t.Fatal("shot inside the world should be alive")
	}
}

func TestWorldSpawnsShotOnceAndConsumesInput(t *testing.T) {
	w := NewWorld(nil, true)
	p, _ := w.UpsertPlayer(PlayerState{Name: "a", X: 500, Y: 500, W: PlayerSize, H: PlayerSize, Lives: MaxLives}, Inputs{Shoot: true, MouseX: 900, MouseY: 500})

	w.Step(dt)
	if p.Inputs.Shoot {
		t.Fatal("shoot input should be consumed")
	}
	shots := w.Shots()
	if len(shots) != 1 {
		t.Fatalf("expected 1 shot, got %d", len(shots))
	}
	if !shots[0].Dirty {
		t.Error("new shot should be dirty")
	}

	w.ClearDirty()
	w.Step(dt)
	if len(w.Shots()) != 1 {
		t.Fatalf("held-off shoot input spawned again: %d shots", len(w.Shots()))
	}
	if shots[0].Dirty {
		t.Error("free-flying shot should not be dirty")
	}
}

func TestWorldRejectsShotInsideTile(t *testing.T) {
	cells := make([]bool, DefaultGridWidth*DefaultGridHeight)
	cells[2*DefaultGridWidth+3] = true // x 120..160, y 80..120
	m, _ := NewMap(DefaultGridWidth, DefaultGridHeight, cells)
	w := NewWorld(m, true)
	p, _ := w.UpsertPlayer(PlayerState{Name: "a", X: 100, Y: 100, W: PlayerSize, H: PlayerSize, Lives: MaxLives}, Inputs{Shoot: true, MouseX: 1000, MouseY: 110})

	w.Step(dt)
	if len(w.Shots()) != 0 {
		t.Fatalf("expected spawn to be rejected, got %d shots", len(w.Shots()))
	}
	if p.Inputs.Shoot {
		t.Error("rejected shoot input should still be consumed")
	}
}

func TestWorldShotCap(t *testing.T) {
	w := NewWorld(nil, true)
	w.MaxShots = 1
	w.UpsertPlayer(PlayerState{Name: "a", X: 300, Y: 300, W: PlayerSize, H: PlayerSize, Lives: MaxLives}, Inputs{Shoot: true, MouseX: 300, MouseY: 0})
	w.UpsertPlayer(PlayerState{Name: "b", X: 900, Y: 300, W: PlayerSize, H: PlayerSize, Lives: MaxLives}, Inputs{Shoot: true, MouseX: 900, MouseY: 0})

	w.Step(dt)
	if n := len(w.Shots()); n != 1 {
		t.Fatalf("expected shot cap of 1, got %d", n)
	}
}

func TestDamageSkipsOwner(t *testing.T) {
	w := NewWorld(nil, true)
	a, _ := w.UpsertPlayer(PlayerState{Name: "a", X: 100, Y: 100, W: PlayerSize, H: PlayerSize, Lives: MaxLives}, Inputs{})
	w.UpsertShot(ShotState{ID: ShotID{Seq: 0, Owner: "a"}, X: 102, Y: 102, W: ShotSize, H: ShotSize, Lives: ShotLives})

	w.Step(dt)
	if a.State.Lives != MaxLives {
		t.Fatalf("owner should be immune, lives=%d", a.State.Lives)
	}
	if len(w.Shots()) != 1 {
		t.Fatal("own shot should survive")
	}
}

func TestDamageHitsOtherPlayer(t *testing.T) {
	w := NewWorld(nil, true)
	a, _ := w.UpsertPlayer(PlayerState{Name: "a", X: 100, Y: 100, W: PlayerSize, H: PlayerSize, Lives: MaxLives}, Inputs{})
	w.UpsertShot(ShotState{ID: ShotID{Seq: 3, Owner: "b"}, X: 102, Y: 102, W: ShotSize, H: ShotSize, Lives: ShotLives})

	w.Step(dt)
	if a.State.Lives != MaxLives-1 {
		t.Fatalf("expected lives %d, got %d", MaxLives-1, a.State.Lives)
	}
	if !a.Dirty {
		t.Error("damaged player should be dirty")
	}
	if len(w.Shots()) != 0 {
		t.Fatal("spent shot should be removed")
	}

	dirty := w.DirtyShots()
	if len(dirty) != 1 || dirty[0].State.Lives != 0 {
		t.Fatalf("spent shot's final state should still be broadcast, got %d", len(dirty))
	}
	w.ClearDirty()
	if len(w.DirtyShots()) != 0 {
		t.Error("ClearDirty should forget retired shots")
	}
}

func TestReplicaNeverSpawnsOrDamages(t *testing.T) {
	w := NewWorld(nil, false)
	a, _ := w.UpsertPlayer(PlayerState{Name: "a", X: 100, Y: 100, W: PlayerSize, H: PlayerSize, Lives: MaxLives}, Inputs{Shoot: true, MouseX: 1000})
	w.UpsertShot(ShotState{ID: ShotID{Seq: 1, Owner: "b"}, X: 102, Y: 102, W: ShotSize, H: ShotSize, Lives: ShotLives})

	w.Step(dt)
	if a.State.Lives != MaxLives {
		t.Errorf("replica applied damage: lives=%d", a.State.Lives)
	}
	if len(w.Shots()) != 1 {
		t.Errorf("replica spawned or removed shots: %d", len(w.Shots()))
	}
	if a.Dirty || len(w.DirtyPlayers()) != 0 {
		t.Error("replica should not mark players dirty")
	}
}
