package model

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewVocabulary(t *testing.T) {
	v, err := NewVocabulary(DefaultMapping())
	if err != nil {
		t.Fatal(err)
	}

	if v.Start != 1 || v.End != 2 || v.Padding != 3 {
		t.Errorf("reserved tokens resolved to %d/%d/%d, want 1/2/3", v.Start, v.End, v.Padding)
	}
}

func TestNewVocabularyMissingReserved(t *testing.T) {
	if _, err := NewVocabulary([]string{"<B>", "<S>", "a", "b"}); err == nil {
		t.Error("expected error for mapping without end and padding tokens")
	}
}

func TestEncodeDecode(t *testing.T) {
	v, err := NewVocabulary(DefaultMapping())
	if err != nil {
		t.Fatal(err)
	}

	ids, err := v.Encode("Go 1")
	if err != nil {
		t.Fatal(err)
	}

	if got := v.Decode(ids); got != "Go 1" {
		t.Errorf("round trip = %q, want %q", got, "Go 1")
	}
}

func TestEncodeUnknown(t *testing.T) {
	v, err := NewVocabulary(DefaultMapping())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := v.Encode("snowman ☃"); err == nil {
		t.Error("expected error for character outside the mapping")
	}
}

func TestDecodeSkipsOutOfRange(t *testing.T) {
	v, err := NewVocabulary(DefaultMapping())
	if err != nil {
		t.Fatal(err)
	}

	ids, err := v.Encode("ok")
	if err != nil {
		t.Fatal(err)
	}

	// ids outside the mapping are dropped, not a panic
	seq := append([]int32{-1, int32(len(v.Values))}, ids...)
	if got := v.Decode(seq); got != "ok" {
		t.Errorf("Decode = %q, want %q", got, "ok")
	}
}

func TestDecodeStopsAtEnd(t *testing.T) {
	v, err := NewVocabulary(DefaultMapping())
	if err != nil {
		t.Fatal(err)
	}

	ids, err := v.Encode("ab")
	if err != nil {
		t.Fatal(err)
	}

	seq := append([]int32{v.Start}, ids...)
	seq = append(seq, v.End)
	extra, err := v.Encode("zz")
	if err != nil {
		t.Fatal(err)
	}
	seq = append(seq, extra...)

	if diff := cmp.Diff("ab", v.Decode(seq)); diff != "" {
		t.Errorf("decode mismatch (-want +got):\n%s", diff)
	}
}
