// Package jsonstream provides an incremental JSON writer with a raw escape hatch.
//
// Writer emits objects and arrays one token at a time onto a jsoniter.Stream
// and keeps track of separators itself, so callers never write commas. Raw and
// RawField write pre-encoded JSON text straight into the same buffer, which
// lets already-serialized values be spliced into a document without being
// decoded and encoded again. Spliced text is not inspected.
package jsonstream

import (
	"errors"
	"fmt"
	"io"
	"math"

	jsoniter "github.com/json-iterator/go"
)

// DefaultBufferSize is the initial buffer capacity of a Writer
const DefaultBufferSize = 4096

var api = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	// ErrNesting is reported when Begin/End/Name calls do not match up
	ErrNesting = errors.New("jsonstream: mismatched nesting")
	// ErrIncomplete is reported by Close when scopes are still open
	ErrIncomplete = errors.New("jsonstream: incomplete document")
	// ErrUnsupportedValue is reported for NaN and infinite numbers
	ErrUnsupportedValue = errors.New("jsonstream: unsupported value")
)

// SinkError wraps a failure of the underlying io.Writer
type SinkError struct {
	Err error
}

func (e *SinkError) Error() string {
	return "jsonstream: sink write failed: " + e.Err.Error()
}

func (e *SinkError) Unwrap() error {
	return e.Err
}

type scopeKind uint8

const (
	scopeObject scopeKind = iota + 1
	scopeArray
)

type scope struct {
	kind  scopeKind
	empty bool
}

// Writer is an incremental JSON writer. It is not safe for concurrent use.
type Writer struct {
	stream *jsoniter.Stream
	scopes []scope
	named  bool
	err    error
}

// NewWriter creates a Writer that buffers up to bufSize bytes between flushes
func NewWriter(out io.Writer, bufSize int) *Writer {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	return &Writer{
		stream: jsoniter.NewStream(api, out, bufSize),
		scopes: make([]scope, 0, 4),
	}
}

// BeginObject opens an object
func (w *Writer) BeginObject() *Writer {
	if !w.beforeValue() {
		return w
	}
	w.stream.WriteObjectStart()
	w.scopes = append(w.scopes, scope{kind: scopeObject, empty: true})
	return w
}

// EndObject closes the innermost object
func (w *Writer) EndObject() *Writer {
	if !w.pop(scopeObject) {
		return w
	}
	w.stream.WriteObjectEnd()
	return w
}

// BeginArray opens an array
func (w *Writer) BeginArray() *Writer {
	if !w.beforeValue() {
		return w
	}
	w.stream.WriteArrayStart()
	w.scopes = append(w.scopes, scope{kind: scopeArray, empty: true})
	return w
}

// EndArray closes the innermost array
func (w *Writer) EndArray() *Writer {
	if !w.pop(scopeArray) {
		return w
	}
	w.stream.WriteArrayEnd()
	return w
}

// Name writes an object key. The next value call supplies its value.
func (w *Writer) Name(name string) *Writer {
	if w.err != nil {
		return w
	}
	if w.named || !w.inObject() {
		w.fail(fmt.Errorf("%w: name %q outside object", ErrNesting, name))
		return w
	}
	w.separate()
	w.stream.WriteObjectField(name)
	w.named = true
	return w
}

// String writes a string value
func (w *Writer) String(v string) *Writer {
	if w.beforeValue() {
		w.stream.WriteString(v)
	}
	return w
}

// NullableString writes a string value, or null when v is nil
func (w *Writer) NullableString(v *string) *Writer {
	if v == nil {
		return w.Null()
	}
	return w.String(*v)
}

// Int64 writes an integer value
func (w *Writer) Int64(v int64) *Writer {
	if w.beforeValue() {
		w.stream.WriteInt64(v)
	}
	return w
}

// Float64 writes a number value. NaN and infinities are rejected.
func (w *Writer) Float64(v float64) *Writer {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		w.fail(fmt.Errorf("%w: %v", ErrUnsupportedValue, v))
		return w
	}
	if w.beforeValue() {
		w.stream.WriteFloat64(v)
	}
	return w
}

// Bool writes a boolean value
func (w *Writer) Bool(v bool) *Writer {
	if w.beforeValue() {
		w.stream.WriteBool(v)
	}
	return w
}

// Null writes null
func (w *Writer) Null() *Writer {
	if w.beforeValue() {
		w.stream.WriteNil()
	}
	return w
}

// Raw writes text to the sink exactly as given. Separator state is left
// untouched, so the caller owns any punctuation inside text.
func (w *Writer) Raw(text string) *Writer {
	if w.err == nil {
		w.stream.WriteRaw(text)
	}
	return w
}

// RawField writes a key followed by fragment verbatim. The separator before
// the key comes from the enclosing object's state, exactly as for Name.
// An empty or malformed fragment produces malformed output.
func (w *Writer) RawField(name, fragment string) *Writer {
	w.Name(name)
	if w.err != nil {
		return w
	}
	w.named = false
	w.stream.WriteRaw(fragment)
	return w
}

// Buffered returns the number of bytes not yet flushed to the sink
func (w *Writer) Buffered() int {
	return w.stream.Buffered()
}

// Flush writes buffered bytes to the sink
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	if err := w.stream.Flush(); err != nil {
		w.err = &SinkError{Err: err}
		return w.err
	}
	return nil
}

// Close flushes the writer and reports an error if the document is unfinished
func (w *Writer) Close() error {
	if err := w.Flush(); err != nil {
		return err
	}
	if len(w.scopes) > 0 || w.named {
		w.err = ErrIncomplete
		return w.err
	}
	return nil
}

// Err returns the first error seen by the writer
func (w *Writer) Err() error {
	return w.err
}

func (w *Writer) inObject() bool {
	return len(w.scopes) > 0 && w.scopes[len(w.scopes)-1].kind == scopeObject
}

// beforeValue emits a separator where needed and reports whether writing may continue
func (w *Writer) beforeValue() bool {
	if w.err != nil {
		return false
	}
	if w.named {
		w.named = false
		return true
	}
	if w.inObject() {
		w.fail(fmt.Errorf("%w: value without name", ErrNesting))
		return false
	}
	w.separate()
	return true
}

func (w *Writer) separate() {
	if len(w.scopes) == 0 {
		return
	}
	top := &w.scopes[len(w.scopes)-1]
	if !top.empty {
		w.stream.WriteMore()
	}
	top.empty = false
}

func (w *Writer) pop(kind scopeKind) bool {
	if w.err != nil {
		return false
	}
	if w.named || len(w.scopes) == 0 || w.scopes[len(w.scopes)-1].kind != kind {
		w.fail(ErrNesting)
		return false
	}
	w.scopes = w.scopes[:len(w.scopes)-1]
	return true
}

func (w *Writer) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

// Valid reports whether fragment is exactly one well-formed JSON value,
// optionally surrounded by whitespace.
func Valid(fragment string) bool {
	iter := jsoniter.ParseString(api, fragment)
	iter.Skip()
	if iter.Error != nil {
		return false
	}
	iter.WhatIsNext()
	return iter.Error == io.EOF
}
