package remoteid

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = "CE3EFB9E-8F7E-4D01-B8A6-8855B526465C"

func TestParse(t *testing.T) {
	tests := []struct {
		raw   string
		valid bool
	}{
		{sample, true},
		{"b." + sample, true},
		{"B." + sample, true},
		{"  b.ce3efb9e-8f7e-4d01-b8a6-8855b526465c  ", true},
		{"", false},
		{"   ", false},
		{"b.", false},
		{"not-an-id", false},
		{"00000000-0000-0000-0000-000000000000", false},
	}

	for _, tt := range tests {
		id := Parse(tt.raw)
		assert.Equal(t, tt.valid, id.IsValid(), "Parse(%q)", tt.raw)
	}
}

func TestProjections(t *testing.T) {
	id := Parse("b." + sample)
	require.True(t, id.IsValid())

	assert.Equal(t, "ce3efb9e-8f7e-4d01-b8a6-8855b526465c", id.Bare())
	assert.Equal(t, "b.ce3efb9e-8f7e-4d01-b8a6-8855b526465c", id.DM())
	assert.Equal(t, id.Bare(), id.String())
}

func TestEqual(t *testing.T) {
	a := Parse(sample)
	b := Parse("b." + sample)
	c := FromUUID(uuid.MustParse("11111111-2222-3333-4444-555555555555"))

	assert.True(t, a.Equal(b))
	assert.True(t, a == b)
	assert.False(t, a.Equal(c))

	// Invalid IDs share the sentinel and compare equal.
	assert.True(t, Parse("junk").Equal(Parse("")))
}

func TestIsValidString(t *testing.T) {
	assert.True(t, IsValidString(sample))
	assert.True(t, IsValidString("b."+sample))
	assert.False(t, IsValidString(" "+sample))
	assert.False(t, IsValidString("x."+sample))
}

func TestTextRoundTrip(t *testing.T) {
	pair := NewPair("b."+sample, "11111111-2222-3333-4444-555555555555")
	require.True(t, pair.IsValid())

	data, err := json.Marshal(pair)
	require.NoError(t, err)
	assert.JSONEq(t, `{"acctID":"ce3efb9e-8f7e-4d01-b8a6-8855b526465c","projID":"11111111-2222-3333-4444-555555555555"}`, string(data))

	var back Pair
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, pair, back)

	var empty ID
	data, err = json.Marshal(empty)
	require.NoError(t, err)
	assert.Equal(t, `""`, string(data))
}

func TestPairInvalid(t *testing.T) {
	assert.False(t, NewPair(sample, "").IsValid())
	assert.False(t, NewPair("", sample).IsValid())
}
