package store

import (
	"testing"
)

func TestEmbeddingRoundTrip(t *testing.T) {
	db := testDB(t)
	f := seedFile(t, db, "a.txt", CategoryProjects)

	vec := []float32{0.25, -1.5, 3.75, 0}
	if err := db.SaveEmbedding(f.ID, vec, "local-minilm"); err != nil {
		t.Fatalf("SaveEmbedding: %v", err)
	}

	got, err := db.GetEmbedding(f.ID)
	if err != nil {
		t.Fatalf("GetEmbedding: %v", err)
	}
	if got == nil {
		t.Fatal("expected embedding")
	}
	if got.Provider != "local-minilm" {
		t.Errorf("provider = %q", got.Provider)
	}
	if len(got.Vector) != len(vec) {
		t.Fatalf("len = %d, want %d", len(got.Vector), len(vec))
	}
	for i := range vec {
		if got.Vector[i] != vec[i] {
			t.Errorf("vec[%d] = %f, want %f", i, got.Vector[i], vec[i])
		}
	}
}

func TestEmbeddingReplace(t *testing.T) {
	db := testDB(t)
	f := seedFile(t, db, "a.txt", CategoryProjects)

	db.SaveEmbedding(f.ID, []float32{1, 2}, "v1")
	if err := db.SaveEmbedding(f.ID, []float32{9, 8, 7}, "v2"); err != nil {
		t.Fatalf("replace: %v", err)
	}

	got, _ := db.GetEmbedding(f.ID)
	if got.Provider != "v2" || len(got.Vector) != 3 || got.Vector[0] != 9 {
		t.Errorf("got %+v, want replaced vector", got)
	}
}

func TestEmbeddingMissing(t *testing.T) {
	db := testDB(t)
	got, err := db.GetEmbedding("nope")
	if err != nil {
		t.Fatalf("GetEmbedding: %v", err)
	}
	if got != nil {
		t.Error("expected nil for missing embedding")
	}
}

func TestVectorCodec(t *testing.T) {
	// Blob is a raw little-endian float32 concatenation, no header.
	vec := []float32{1.0}
	blob := encodeVector(vec)
	if len(blob) != 4 {
		t.Fatalf("blob len = %d, want 4", len(blob))
	}
	// 1.0 as IEEE-754 LE: 00 00 80 3f
	want := []byte{0x00, 0x00, 0x80, 0x3f}
	for i := range want {
		if blob[i] != want[i] {
			t.Errorf("blob[%d] = %x, want %x", i, blob[i], want[i])
		}
	}
	back := decodeVector(blob)
	if len(back) != 1 || back[0] != 1.0 {
		t.Errorf("decode = %v", back)
	}
}
