package binout

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// recordingHandler captures the exact callback sequence it receives, so
// tests can assert against spec.md §8 scenario 6's literal event order.
type recordingHandler struct {
	events []string
	cols   []ColumnTag
}

func (h *recordingHandler) TableBegin(name string) error {
	h.events = append(h.events, "table_begin:"+name)
	return nil
}
func (h *recordingHandler) ColumnBegin(name string, typ ColumnTag) error {
	h.events = append(h.events, "column_begin:"+name)
	h.cols = append(h.cols, typ)
	return nil
}
func (h *recordingHandler) ColumnEnd() error {
	h.events = append(h.events, "column_end")
	return nil
}
func (h *recordingHandler) RowBegin() error {
	h.events = append(h.events, "row_begin")
	return nil
}
func (h *recordingHandler) DataUint64(v uint64) error {
	h.events = append(h.events, "data_uint64")
	return nil
}
func (h *recordingHandler) DataString(v string) error {
	h.events = append(h.events, "data_string")
	return nil
}
func (h *recordingHandler) DataBool(v bool) error {
	h.events = append(h.events, "data_bool")
	return nil
}
func (h *recordingHandler) RowEnd() error {
	h.events = append(h.events, "row_end")
	return nil
}
func (h *recordingHandler) TableEnd() error {
	h.events = append(h.events, "table_end")
	return nil
}

func TestScenarioSixSingleUint64ColumnThreeRows(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, false)
	require.NoError(t, w.Open())
	require.NoError(t, w.Table("counts", []Column{{Name: "n", Type: ColUint64}}))
	require.NoError(t, w.Row(uint64(42)))
	require.NoError(t, w.Row(uint64(0)))
	require.NoError(t, w.Row(uint64(1)<<63))
	require.NoError(t, w.EndTable())
	require.NoError(t, w.Close())

	p := NewParser(&buf, Options{})
	require.NoError(t, p.CheckMagic())
	h := &recordingHandler{}
	require.NoError(t, p.Run(h))

	require.Equal(t, []string{
		"table_begin:counts",
		"column_begin:n", "column_end",
		"row_begin", "data_uint64", "row_end",
		"row_begin", "data_uint64", "row_end",
		"row_begin", "data_uint64", "row_end",
		"table_end",
	}, h.events)
}

// captureHandler reconstructs the table it sees into plain Go values, for
// the writer-parser round-trip identity law (spec.md §8): parsing the bytes
// produced by writing table T reproduces exactly T's column names, types,
// and row values.
type captureHandler struct {
	name    string
	cols    []Column
	rows    [][]interface{}
	current []interface{}
}

func (h *captureHandler) TableBegin(name string) error {
	h.name = name
	return nil
}
func (h *captureHandler) ColumnBegin(name string, typ ColumnTag) error {
	h.cols = append(h.cols, Column{Name: name, Type: typ})
	return nil
}
func (h *captureHandler) ColumnEnd() error { return nil }
func (h *captureHandler) RowBegin() error {
	h.current = nil
	return nil
}
func (h *captureHandler) DataUint64(v uint64) error {
	h.current = append(h.current, v)
	return nil
}
func (h *captureHandler) DataString(v string) error {
	h.current = append(h.current, v)
	return nil
}
func (h *captureHandler) DataBool(v bool) error {
	h.current = append(h.current, v)
	return nil
}
func (h *captureHandler) RowEnd() error {
	h.rows = append(h.rows, h.current)
	return nil
}
func (h *captureHandler) TableEnd() error { return nil }

func TestWriterParserRoundTripReproducesTableExactly(t *testing.T) {
	cols := []Column{
		{Name: "function", Type: ColString},
		{Name: "loads", Type: ColUint64},
		{Name: "is_hot", Type: ColBool},
	}
	rows := [][]interface{}{
		{"main", uint64(100), true},
		{"helper", uint64(0), false},
		{"", uint64(1 << 62), true},
	}

	var buf bytes.Buffer
	w := NewWriter(&buf, false)
	require.NoError(t, w.Open())
	require.NoError(t, w.Table("functions", cols))
	for _, r := range rows {
		require.NoError(t, w.Row(r...))
	}
	require.NoError(t, w.EndTable())
	require.NoError(t, w.Close())

	p := NewParser(&buf, Options{})
	require.NoError(t, p.CheckMagic())
	h := &captureHandler{}
	require.NoError(t, p.Run(h))

	require.Equal(t, "functions", h.name)
	require.Equal(t, cols, h.cols)
	require.Equal(t, rows, h.rows)
}

func TestParserRejectsBadMagic(t *testing.T) {
	buf := bytes.NewBufferString("NOTBYFL")
	p := NewParser(buf, Options{})
	err := p.CheckMagic()
	require.Error(t, err)
}

func TestParserRejectsUnknownTableTag(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString(Magic)
	buf.WriteByte(0xEE)
	p := NewParser(&buf, Options{})
	require.NoError(t, p.CheckMagic())
	err := p.Run(&recordingHandler{})
	require.Error(t, err)
}

// writeRawString/writeRawUint appends a binout-encoded string/uint64 to buf,
// mirroring Writer's own encoding, for tests that need to hand-build a
// stream Writer itself never emits (key:value tables).
func writeRawString(buf *bytes.Buffer, s string) {
	buf.WriteByte(byte(len(s) >> 8))
	buf.WriteByte(byte(len(s)))
	buf.WriteString(s)
}

func writeRawUint64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (56 - 8*i))
	}
	buf.Write(b[:])
}

// TestKeyValTableBuffersRowAndDeliversTypeIndexedCallbacks builds a
// key:value table by hand (Writer only ever emits TableBasic) with columns
// in string/uint64/string order, and checks the parser delivers the row's
// values type-indexed (every uint64 column, then every string column) per
// spec.md §4.8, rather than interleaved in raw column order.
func TestKeyValTableBuffersRowAndDeliversTypeIndexedCallbacks(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString(Magic)
	buf.WriteByte(byte(TableKeyVal))
	writeRawString(&buf, "Command line")

	buf.WriteByte(byte(ColString))
	writeRawString(&buf, "flag")
	buf.WriteByte(byte(ColNone))
	buf.WriteByte(byte(ColUint64))
	writeRawString(&buf, "count")
	buf.WriteByte(byte(ColNone))
	buf.WriteByte(byte(ColString))
	writeRawString(&buf, "note")
	buf.WriteByte(byte(ColNone))
	buf.WriteByte(byte(ColNone)) // end of column headers

	buf.WriteByte(byte(RowData))
	writeRawString(&buf, "-bf-every-bb")
	writeRawUint64(&buf, 7)
	writeRawString(&buf, "enabled")
	buf.WriteByte(byte(RowNone))
	buf.WriteByte(byte(TableNone))

	p := NewParser(&buf, Options{})
	require.NoError(t, p.CheckMagic())
	h := &recordingHandler{}
	require.NoError(t, p.Run(h))

	require.Equal(t, []string{
		"table_begin:Command line",
		"column_begin:flag", "column_end",
		"column_begin:count", "column_end",
		"column_begin:note", "column_end",
		"row_begin",
		"data_uint64",
		"data_string", "data_string",
		"row_end",
		"table_end",
	}, h.events)
}

func TestSuppressedWriterProducesNoBytes(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, true)
	require.NoError(t, w.Open())
	require.NoError(t, w.Table("x", []Column{{Name: "a", Type: ColUint64}}))
	require.NoError(t, w.Row(uint64(1)))
	require.NoError(t, w.EndTable())
	require.NoError(t, w.Close())
	require.Equal(t, 0, buf.Len())
}

// trickleReader yields data in small pieces, returning io.EOF between
// deliveries as if reading a file still being appended to, so live-tail
// backoff actually gets exercised.
type trickleReader struct {
	chunks [][]byte
	i      int
}

func (r *trickleReader) Read(p []byte) (int, error) {
	if r.i >= len(r.chunks) {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[r.i])
	r.i++
	if n < len(r.chunks[r.i-1]) {
		r.chunks[r.i-1] = r.chunks[r.i-1][n:]
		r.i--
	}
	return n, io.EOF
}

func TestLiveTailRetriesOnEOFWithGrowingBackoffThenSucceeds(t *testing.T) {
	full := []byte(Magic)
	r := &trickleReader{chunks: [][]byte{full[:3], full[3:]}}

	var slept []time.Duration
	p := NewParser(r, Options{
		LiveTail: true,
		Sleep:    func(d time.Duration) { slept = append(slept, d) },
	})

	require.NoError(t, p.CheckMagic())
	require.Equal(t, []time.Duration{time.Second}, slept)
}

func TestLiveTailBackoffDoublesAndCapsAtMax(t *testing.T) {
	r := &trickleReader{chunks: [][]byte{{}}}
	var slept []time.Duration
	p := NewParser(r, Options{
		LiveTail:       true,
		InitialBackoff: time.Second,
		MaxBackoff:     4 * time.Second,
		Sleep: func(d time.Duration) {
			slept = append(slept, d)
			if len(slept) >= 4 {
				r.chunks = [][]byte{[]byte(Magic)}
				r.i = 0
			}
		},
	})
	require.NoError(t, p.CheckMagic())
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 4 * time.Second}, slept)
}
