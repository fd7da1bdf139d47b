package model

import (
	"fmt"
	"strings"
	"sync"
)

const (
	TokenBlank   = "<B>"
	TokenStart   = "<S>"
	TokenEnd     = "<E>"
	TokenPadding = "<P>"
)

// Vocabulary is the ordered character mapping a model emits indices
// into. Reserved tokens mark sequence start, end and padding; they are
// located by value in the mapping, mirroring how the training data
// defines them.
type Vocabulary struct {
	Values []string

	Start, End, Padding int32

	valuesOnce sync.Once
	values     map[string]int32
}

// NewVocabulary resolves the reserved tokens in values and returns the
// vocabulary. It fails when a reserved token is missing: a model cannot
// delimit its output without them.
func NewVocabulary(values []string) (*Vocabulary, error) {
	v := &Vocabulary{Values: values}

	for _, special := range []struct {
		token string
		id    *int32
	}{
		{TokenStart, &v.Start},
		{TokenEnd, &v.End},
		{TokenPadding, &v.Padding},
	} {
		id, ok := v.Lookup(special.token)
		if !ok {
			return nil, fmt.Errorf("vocabulary is missing reserved token %q", special.token)
		}
		*special.id = id
	}

	return v, nil
}

func (v *Vocabulary) Len() int {
	return len(v.Values)
}

func (v *Vocabulary) Lookup(s string) (int32, bool) {
	v.valuesOnce.Do(func() {
		v.values = make(map[string]int32, len(v.Values))
		for i, value := range v.Values {
			v.values[value] = int32(i)
		}
	})

	id, ok := v.values[s]
	return id, ok
}

// Encode maps a line of text to token ids. Characters outside the
// mapping are an error.
func (v *Vocabulary) Encode(s string) ([]int32, error) {
	ids := make([]int32, 0, len(s))
	for _, r := range s {
		id, ok := v.Lookup(string(r))
		if !ok {
			return nil, fmt.Errorf("character %q not in vocabulary", r)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Decode maps token ids back to text, stopping at the end token and
// skipping the remaining reserved tokens.
func (v *Vocabulary) Decode(ids []int32) string {
	var sb strings.Builder
	for _, id := range ids {
		if id == v.End {
			break
		}
		if id < 0 || int(id) >= len(v.Values) {
			continue
		}
		switch value := v.Values[id]; value {
		case TokenBlank, TokenStart, TokenPadding:
		default:
			sb.WriteString(value)
		}
	}
	return sb.String()
}

// DefaultMapping is the character set used when a configuration does
// not carry its own: reserved tokens, space, digits, and both letter
// cases, matching the handwriting datasets the models are trained on.
func DefaultMapping() []string {
	values := []string{TokenBlank, TokenStart, TokenEnd, TokenPadding, " "}
	for c := '0'; c <= '9'; c++ {
		values = append(values, string(c))
	}
	for c := 'A'; c <= 'Z'; c++ {
		values = append(values, string(c))
	}
	for c := 'a'; c <= 'z'; c++ {
		values = append(values, string(c))
	}
	for _, c := range `!"#&'()*+,-./:;?` {
		values = append(values, string(c))
	}
	return values
}
