package jsonstream

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingWriter struct {
	err error
}

func (f *failingWriter) Write(p []byte) (int, error) {
	return 0, f.err
}

func TestWriter_StructuredValues(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, 0)

	w.BeginObject()
	w.Name("a").Int64(1)
	w.Name("b").String("x\"y")
	w.Name("c").Bool(true)
	w.Name("d").Null()
	w.Name("e").Float64(12.5)
	w.Name("f").BeginArray().Int64(1).Int64(2).BeginObject().EndObject().EndArray()
	w.EndObject()

	require.NoError(t, w.Close())
	assert.Equal(t, `{"a":1,"b":"x\"y","c":true,"d":null,"e":12.5,"f":[1,2,{}]}`, buf.String())
}

func TestWriter_NullableString(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, 0)
	name := "alice"

	w.BeginObject().Name("set").NullableString(&name).Name("unset").NullableString(nil).EndObject()

	require.NoError(t, w.Close())
	assert.Equal(t, `{"set":"alice","unset":null}`, buf.String())
}

func TestWriter_RawField(t *testing.T) {
	t.Run("comma before spliced key after structured field", func(t *testing.T) {
		var buf bytes.Buffer
		w := NewWriter(&buf, 0)

		w.BeginObject()
		w.Name("id").String("t1")
		w.RawField("threadNames", `["main"]`)
		w.Name("username").Null()
		w.RawField("spans", `[]`)
		w.EndObject()

		require.NoError(t, w.Close())
		assert.Equal(t, `{"id":"t1","threadNames":["main"],"username":null,"spans":[]}`, buf.String())
	})

	t.Run("spliced key as first field has no comma", func(t *testing.T) {
		var buf bytes.Buffer
		w := NewWriter(&buf, 0)

		w.BeginObject().RawField("spans", `[{"a":1}]`).Name("n").Int64(2).EndObject()

		require.NoError(t, w.Close())
		assert.Equal(t, `{"spans":[{"a":1}],"n":2}`, buf.String())
	})

	t.Run("consecutive spliced fields", func(t *testing.T) {
		var buf bytes.Buffer
		w := NewWriter(&buf, 0)

		w.BeginObject().RawField("a", `[1]`).RawField("b", `{}`).EndObject()

		require.NoError(t, w.Close())
		assert.Equal(t, `{"a":[1],"b":{}}`, buf.String())
	})

	t.Run("fragment is not re-encoded", func(t *testing.T) {
		var buf bytes.Buffer
		w := NewWriter(&buf, 0)
		fragment := "[\"<tag>\",\"caf\u00e9\",\"\\u0041\"]"

		w.BeginObject().RawField("threadNames", fragment).EndObject()

		require.NoError(t, w.Close())
		assert.Equal(t, `{"threadNames":`+fragment+`}`, buf.String())
	})

	t.Run("empty fragment leaves an empty value slot", func(t *testing.T) {
		var buf bytes.Buffer
		w := NewWriter(&buf, 0)

		w.BeginObject().Name("id").String("t1").RawField("spans", "").EndObject()

		require.NoError(t, w.Close())
		assert.Equal(t, `{"id":"t1","spans":}`, buf.String())
		assert.False(t, json.Valid(buf.Bytes()))
	})
}

func TestWriter_Raw(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, 0)

	w.BeginObject()
	w.Name("completed").Bool(true)
	w.Raw(`,"threadNames":`)
	w.Raw(`["main"]`)
	w.Name("username").String("bob")
	w.EndObject()

	require.NoError(t, w.Close())
	assert.Equal(t, `{"completed":true,"threadNames":["main"],"username":"bob"}`, buf.String())
}

func TestWriter_Nesting(t *testing.T) {
	tests := []struct {
		name  string
		write func(w *Writer)
		want  error
	}{
		{
			name:  "value without name inside object",
			write: func(w *Writer) { w.BeginObject().Int64(1) },
			want:  ErrNesting,
		},
		{
			name:  "name inside array",
			write: func(w *Writer) { w.BeginArray().Name("x") },
			want:  ErrNesting,
		},
		{
			name:  "end object closes array",
			write: func(w *Writer) { w.BeginArray().EndObject() },
			want:  ErrNesting,
		},
		{
			name:  "dangling name",
			write: func(w *Writer) { w.BeginObject().Name("x").EndObject() },
			want:  ErrNesting,
		},
		{
			name:  "unclosed object",
			write: func(w *Writer) { w.BeginObject() },
			want:  ErrIncomplete,
		},
		{
			name:  "nan",
			write: func(w *Writer) { w.Float64(math.NaN()) },
			want:  ErrUnsupportedValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWriter(&bytes.Buffer{}, 0)
			tt.write(w)
			err := w.Close()
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestWriter_SinkFailure(t *testing.T) {
	sinkErr := errors.New("connection reset")
	w := NewWriter(&failingWriter{err: sinkErr}, 0)

	w.BeginObject().Name("a").Int64(1).EndObject()
	err := w.Flush()

	require.Error(t, err)
	var se *SinkError
	require.True(t, errors.As(err, &se))
	assert.ErrorIs(t, err, sinkErr)

	// the writer stays failed
	w.BeginObject()
	assert.Equal(t, err, w.Close())
}

func TestWriter_FlushIsIncremental(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, 0)

	w.BeginArray().Int64(1)
	assert.Equal(t, 0, buf.Len())
	assert.Greater(t, w.Buffered(), 0)

	require.NoError(t, w.Flush())
	assert.Equal(t, "[1", buf.String())
	assert.Equal(t, 0, w.Buffered())

	w.Int64(2).EndArray()
	require.NoError(t, w.Close())
	assert.Equal(t, "[1,2]", buf.String())
}

func TestValid(t *testing.T) {
	tests := []struct {
		fragment string
		want     bool
	}{
		{`[]`, true},
		{`["main","worker-1"]`, true},
		{` {"a":[1,2,{"b":null}]} `, true},
		{`"text"`, true},
		{``, false},
		{`   `, false},
		{`[1,`, false},
		{`[1] [2]`, false},
		{`{"a":1}x`, false},
		{`{a:1}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.fragment, func(t *testing.T) {
			assert.Equal(t, tt.want, Valid(tt.fragment))
		})
	}
}
