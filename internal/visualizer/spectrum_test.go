package visualizer

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestBars(t *testing.T) {
	frame := []uint8{0, 51, 255, 128}

	got := Bars(frame, false)
	want := []float64{0, 0.2, 1, 128.0 / 255}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("bar %d = %v, want %v", i, got[i], want[i])
		}
	}

	muted := Bars(frame, true)
	if len(muted) != len(frame) {
		t.Fatalf("muted bars length = %d, want %d", len(muted), len(frame))
	}
	for i, h := range muted {
		if h != 0 {
			t.Errorf("muted bar %d = %v, want 0", i, h)
		}
	}

	if got := Bars(nil, false); len(got) != 0 {
		t.Errorf("empty frame gave %d bars", len(got))
	}
}

func TestColumnsTakesLoudestBar(t *testing.T) {
	s := NewSpectrum()
	s.Update([]uint8{0, 255, 0, 0, 51, 0, 0, 0}, false)

	tests := []struct {
		name string
		n    int
		want []float64
	}{
		{"two columns", 2, []float64{1, 0.2}},
		{"four columns", 4, []float64{1, 0, 0.2, 0}},
		{"more columns than bars", 20, []float64{0, 1, 0, 0, 0.2, 0, 0, 0}},
		{"zero columns", 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Columns(tt.n)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d columns, want %d", len(got), len(tt.want))
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("column %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestRender(t *testing.T) {
	s := NewSpectrum()
	s.Update([]uint8{255, 0, 128, 255}, false)

	out := s.Render(4, 2)
	rows := strings.Split(out, "\n")
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2:\n%s", len(rows), out)
	}
	for i, row := range rows {
		if n := utf8.RuneCountInString(row); n != 4 {
			t.Errorf("row %d has %d runes, want 4: %q", i, n, row)
		}
	}

	top := []rune(rows[0])
	bottom := []rune(rows[1])
	if top[0] != '█' || bottom[0] != '█' {
		t.Errorf("full bar = %q/%q, want full blocks", top[0], bottom[0])
	}
	if top[1] != ' ' || bottom[1] != ' ' {
		t.Errorf("silent bar = %q/%q, want spaces", top[1], bottom[1])
	}
	if bottom[2] != '█' || top[2] == '█' {
		t.Errorf("half bar = %q/%q, want full bottom and partial top", top[2], bottom[2])
	}
	t.Logf("\n%s", out)
}

func TestRenderMutedIsBaseline(t *testing.T) {
	s := NewSpectrum()
	s.Update([]uint8{255, 255, 255}, true)

	out := s.Render(3, 3)
	if strings.TrimSpace(out) != "" {
		t.Errorf("muted render not blank:\n%s", out)
	}
}

func TestRenderEmpty(t *testing.T) {
	s := NewSpectrum()
	out := s.Render(5, 2)
	if out != "     \n     " {
		t.Errorf("empty render = %q", out)
	}
}
