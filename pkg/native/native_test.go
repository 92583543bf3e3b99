package native

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintStream(t *testing.T) {
	t.Run("println writes through and records lines", func(t *testing.T) {
		var buf bytes.Buffer
		ps := &PrintStream{Writer: &buf}
		ps.Println("hello")
		ps.Println("")
		ps.Println("world")

		assert.Equal(t, "hello\n\nworld\n", buf.String())
		assert.Equal(t, []string{"hello", "", "world"}, ps.Lines())
	})

	t.Run("print joins until newline", func(t *testing.T) {
		ps := &PrintStream{}
		ps.Print("a")
		ps.Print("b")
		ps.Println("c")
		ps.Print("tail")

		assert.Equal(t, []string{"abc", "tail"}, ps.Lines())
	})

	t.Run("embedded newlines split lines", func(t *testing.T) {
		ps := &PrintStream{}
		_, err := ps.Write([]byte("x\ny\n"))
		require.NoError(t, err)

		assert.Equal(t, []string{"x", "y"}, ps.Lines())
	})
}

func TestHashMap(t *testing.T) {
	t.Run("put and get", func(t *testing.T) {
		hm := NewHashMap()
		assert.Nil(t, hm.Put("key1", "value1"))
		assert.Equal(t, "value1", hm.Get("key1"))
	})

	t.Run("get missing key returns nil", func(t *testing.T) {
		assert.Nil(t, NewHashMap().Get("nonexistent"))
	})

	t.Run("overwrite returns previous value", func(t *testing.T) {
		hm := NewHashMap()
		hm.Put("key", "old")
		assert.Equal(t, "old", hm.Put("key", "new"))
		assert.Equal(t, "new", hm.Get("key"))
		assert.Equal(t, 1, hm.Size())
	})

	t.Run("integer keys", func(t *testing.T) {
		hm := NewHashMap()
		hm.Put(int32(0), int32(1))
		hm.Put(int32(1), int32(1))

		assert.Equal(t, int32(1), hm.Get(int32(0)))
		assert.True(t, hm.ContainsKey(int32(1)))
		assert.False(t, hm.ContainsKey(int32(2)))
	})

	t.Run("remove keeps insertion order of the rest", func(t *testing.T) {
		hm := NewHashMap()
		hm.Put("a", 1)
		hm.Put("b", 2)
		hm.Put("c", 3)

		assert.Equal(t, 2, hm.Remove("b"))
		assert.Nil(t, hm.Remove("b"))
		assert.Equal(t, []any{"a", "c"}, hm.Keys())
	})
}

func TestParseInt(t *testing.T) {
	tests := []struct {
		in      string
		want    int32
		wantErr bool
	}{
		{"42", 42, false},
		{"-100", -100, false},
		{"+7", 7, false},
		{"2147483647", 2147483647, false},
		{"-2147483648", -2147483648, false},
		{"2147483648", 0, true},
		{"", 0, true},
		{"-", 0, true},
		{"12a", 0, true},
		{" 1", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseInt(tt.in)
			if tt.wantErr {
				var nfe *NumberFormatError
				require.ErrorAs(t, err, &nfe)
				assert.Equal(t, `For input string: "`+tt.in+`"`, err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIntegerCached(t *testing.T) {
	assert.True(t, IntegerCached(-128))
	assert.True(t, IntegerCached(127))
	assert.False(t, IntegerCached(128))
	assert.False(t, IntegerCached(-129))
}

func TestStringHash(t *testing.T) {
	assert.Equal(t, int32(0), StringHash(""))
	assert.Equal(t, int32(97), StringHash("a"))
	assert.Equal(t, int32(99162322), StringHash("hello"))
	assert.Equal(t, int32(-505841268), StringHash("Hello, World"))
}

func TestByteStream(t *testing.T) {
	s := NewByteStream([]byte{'h', 0xff})
	assert.Equal(t, int32(2), s.Available())
	assert.Equal(t, int32('h'), s.Read())
	assert.Equal(t, int32(255), s.Read())
	assert.Equal(t, int32(-1), s.Read())
	assert.Equal(t, int32(0), s.Available())
}
