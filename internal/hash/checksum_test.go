package hash

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSum64(t *testing.T) {
	tests := []struct {
		name string
		data string
		sum  uint64
	}{
		{"empty", "", 0xef46db3751d8e999},
		{"short", "test", 0x4fdcca5ddb678139},
		{"long", "this is a longer test string to hash", 0x69275f7f7ee59dbd},
		{"other", "another test string", 0x212a22f593810bec},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.sum, Sum64([]byte(tt.data)))
		})
	}
}

func TestState_MatchesSum64(t *testing.T) {
	data := []byte("ids||seq||qual||aux concatenated payload bytes")

	want := Sum64(data)

	s := NewState()
	_, err := s.Write(data)
	require.NoError(t, err)
	assert.Equal(t, want, s.Sum64())
}

func TestState_IncrementalWritesMatchSingleWrite(t *testing.T) {
	parts := [][]byte{[]byte("ids-stream"), []byte("seq-stream"), []byte("qual-stream"), []byte("aux-stream")}

	whole := NewState()
	for _, p := range parts {
		whole.Write(p)
	}

	var joined []byte
	for _, p := range parts {
		joined = append(joined, p...)
	}

	assert.Equal(t, Sum64(joined), whole.Sum64())
}

func TestState_Reset(t *testing.T) {
	s := NewState()
	s.Write([]byte("first digest"))
	first := s.Sum64()

	s.Reset()
	s.Write([]byte("first digest"))

	assert.Equal(t, first, s.Sum64())
}

func randBytes(n int) []byte {
	const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	b := make([]byte, n)
	seededRand := rand.New(rand.NewSource(time.Now().UnixNano()))
	for i := range b {
		b[i] = letters[seededRand.Intn(len(letters))]
	}

	return b
}

func BenchmarkSum64(b *testing.B) {
	data := randBytes(256)
	b.ResetTimer()
	for b.Loop() {
		Sum64(data)
	}
}

func BenchmarkState_Write(b *testing.B) {
	data := randBytes(256)
	s := NewState()
	b.ResetTimer()
	for b.Loop() {
		s.Write(data)
	}
}
