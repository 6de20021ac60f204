package server

import (
	"testing"

	"battle2d/game"
)

func TestScriptedInput(t *testing.T) {
	src := NewScriptedInput(
		game.Inputs{Right: true, Jump: true},
		game.Inputs{Right: true},
	)

	in, changed := src.Poll()
	if !changed || !in.Jump || !in.Right {
		t.Fatalf("first frame: %+v %v", in, changed)
	}
	in, changed = src.Poll()
	if !changed || in.Jump || !in.Right {
		t.Fatalf("second frame: %+v %v", in, changed)
	}
	if !src.Done() {
		t.Error("script should be done")
	}
	in, changed = src.Poll()
	if changed || !in.Right {
		t.Errorf("held direction should persist unchanged: %+v %v", in, changed)
	}
}

func TestMergeInputsKeepsEdges(t *testing.T) {
	got := mergeInputs(game.Inputs{Jump: true, Left: true}, game.Inputs{Right: true, MouseX: 3})
	want := game.Inputs{Jump: true, Right: true, MouseX: 3}
	if got != want {
		t.Errorf("merge = %+v, want %+v", got, want)
	}
}

func TestSignificantChange(t *testing.T) {
	cases := []struct {
		name     string
		old, cur game.Inputs
		want     bool
	}{
		{"same", game.Inputs{Left: true}, game.Inputs{Left: true}, false},
		{"key", game.Inputs{}, game.Inputs{Jump: true}, true},
		{"mouse without shoot", game.Inputs{MouseX: 1}, game.Inputs{MouseX: 2}, false},
		{"mouse while shooting", game.Inputs{Shoot: true, MouseX: 1}, game.Inputs{Shoot: true, MouseX: 2}, true},
	}
	for _, c := range cases {
		if got := significantChange(c.old, c.cur); got != c.want {
			t.Errorf("%s: got %v want %v", c.name, got, c.want)
		}
	}
}
