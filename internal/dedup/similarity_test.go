package dedup

import "testing"

func TestSimilarity(t *testing.T) {
	cases := []struct {
		a, b string
		want float64
	}{
		{"", "", 1.0},
		{"", "ai", 0.0},
		{"ai", "", 0.0},
		{"AI", "ai", 1.0},      // case-folded identical
		{"golang", "golang", 1.0},
		{"kitten", "sitting", 1.0 - 3.0/7.0},
		{"ai", "a.i.", 0.5}, // two inserts over max len 4
	}
	for _, c := range cases {
		got := Similarity(c.a, c.b)
		if diff := got - c.want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("Similarity(%q, %q) = %f, want %f", c.a, c.b, got, c.want)
		}
	}
}

func TestSimilarityBounds(t *testing.T) {
	samples := []string{"", "a", "ab", "golang", "Go-Lang", "résumé", "完全に違う"}
	for _, a := range samples {
		for _, b := range samples {
			s := Similarity(a, b)
			if s < 0 || s > 1 {
				t.Errorf("Similarity(%q, %q) = %f out of [0,1]", a, b, s)
			}
			if Similarity(b, a) != s {
				t.Errorf("Similarity(%q, %q) not symmetric", a, b)
			}
		}
		if a != "" && Similarity(a, a) != 1.0 {
			t.Errorf("Similarity(%q, %q) != 1", a, a)
		}
	}
}

func TestLevenshtein(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
		{"abc", "abc", 0},
		{"abc", "", 3},
		{"", "xyz", 3},
		{"résumé", "resume", 2}, // rune-wise, not byte-wise
	}
	for _, c := range cases {
		got := levenshtein([]rune(c.a), []rune(c.b))
		if got != c.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}
