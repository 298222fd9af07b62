package binout

import (
	"bufio"
	"io"

	"github.com/lanl/byflgo/internal/byflerr"
)

// Column describes one column of a basic table: its name and value type.
type Column struct {
	Name string
	Type ColumnTag
}

// Writer streams big-endian tag-length-value records to an underlying
// io.Writer, per spec.md §4.8. Call Open once, then Table/Row/EndTable for
// each table, and Close when done. Every write flushes, per spec.md §5's
// "the writer flushes after each table" so a killed instrumented program
// still leaves partial, readable output.
type Writer struct {
	w       *bufio.Writer
	raw     io.Writer
	opened  bool
	inTable bool
	cols    []Column
	closed  bool
}

// NewWriter wraps w. If suppress is true, every write becomes a no-op and no
// bytes are ever produced -- the counting-suppressed sink spec.md's
// SUPPLEMENTED FEATURES section calls for.
func NewWriter(w io.Writer, suppress bool) *Writer {
	if suppress {
		w = io.Discard
	}
	return &Writer{w: bufio.NewWriter(w), raw: w}
}

// Open writes the magic header. Must be called exactly once, before any
// Table call.
func (bw *Writer) Open() error {
	if bw.opened {
		return byflerr.Internal("binout: Open called twice")
	}
	if _, err := bw.w.WriteString(Magic); err != nil {
		return byflerr.Wrap(byflerr.KindIo, err, "writing magic header")
	}
	bw.opened = true
	return bw.w.Flush()
}

func (bw *Writer) writeUint8(v uint8) error {
	return bw.w.WriteByte(v)
}

func (bw *Writer) writeUint64(v uint64) error {
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(v >> (56 - 8*i))
	}
	_, err := bw.w.Write(buf[:])
	return err
}

func (bw *Writer) writeUint16(v uint16) error {
	var buf [2]byte
	buf[0] = byte(v >> 8)
	buf[1] = byte(v)
	_, err := bw.w.Write(buf[:])
	return err
}

// writeString encodes s with a 16-bit big-endian length prefix, per
// spec.md §4.8's encoding table.
func (bw *Writer) writeString(s string) error {
	if len(s) > 1<<16-1 {
		return byflerr.Format("string too long for 16-bit length prefix: %d bytes", len(s))
	}
	if err := bw.writeUint16(uint16(len(s))); err != nil {
		return err
	}
	_, err := bw.w.WriteString(s)
	return err
}

func (bw *Writer) writeBool(b bool) error {
	if b {
		return bw.writeUint8(1)
	}
	return bw.writeUint8(0)
}

// Table begins a new basic table named name with the given columns,
// writing the table tag, its length-prefixed name, and the column header.
func (bw *Writer) Table(name string, cols []Column) error {
	if bw.inTable {
		return byflerr.Internal("binout: Table called while another table is open")
	}
	if err := bw.writeUint8(uint8(TableBasic)); err != nil {
		return byflerr.Wrap(byflerr.KindIo, err, "writing table tag")
	}
	if err := bw.writeString(name); err != nil {
		return byflerr.Wrap(byflerr.KindIo, err, "writing table name")
	}
	for _, c := range cols {
		if err := bw.writeUint8(uint8(c.Type)); err != nil {
			return byflerr.Wrap(byflerr.KindIo, err, "writing column type")
		}
		if err := bw.writeString(c.Name); err != nil {
			return byflerr.Wrap(byflerr.KindIo, err, "writing column name")
		}
	}
	if err := bw.writeUint8(uint8(ColNone)); err != nil {
		return byflerr.Wrap(byflerr.KindIo, err, "writing column-header terminator")
	}
	bw.inTable = true
	bw.cols = cols
	return bw.w.Flush()
}

// Row writes one data row; values must be positionally type-compatible with
// the columns passed to Table (uint64, string, or bool).
func (bw *Writer) Row(values ...interface{}) error {
	if !bw.inTable {
		return byflerr.Internal("binout: Row called outside a table")
	}
	if len(values) != len(bw.cols) {
		return byflerr.Internal("binout: Row got %d values, table has %d columns", len(values), len(bw.cols))
	}
	if err := bw.writeUint8(uint8(RowData)); err != nil {
		return byflerr.Wrap(byflerr.KindIo, err, "writing row tag")
	}
	for i, v := range values {
		var err error
		switch bw.cols[i].Type {
		case ColUint64:
			u, ok := v.(uint64)
			if !ok {
				return byflerr.Internal("binout: column %q expects uint64, got %T", bw.cols[i].Name, v)
			}
			err = bw.writeUint64(u)
		case ColString:
			s, ok := v.(string)
			if !ok {
				return byflerr.Internal("binout: column %q expects string, got %T", bw.cols[i].Name, v)
			}
			err = bw.writeString(s)
		case ColBool:
			b, ok := v.(bool)
			if !ok {
				return byflerr.Internal("binout: column %q expects bool, got %T", bw.cols[i].Name, v)
			}
			err = bw.writeBool(b)
		default:
			return byflerr.Internal("binout: unknown column type %d", bw.cols[i].Type)
		}
		if err != nil {
			return byflerr.Wrap(byflerr.KindIo, err, "writing row value")
		}
	}
	return bw.w.Flush()
}

// EndTable closes the current table (writing BINOUT_ROW_NONE).
func (bw *Writer) EndTable() error {
	if !bw.inTable {
		return byflerr.Internal("binout: EndTable called outside a table")
	}
	if err := bw.writeUint8(uint8(RowNone)); err != nil {
		return byflerr.Wrap(byflerr.KindIo, err, "writing end-of-table tag")
	}
	bw.inTable = false
	bw.cols = nil
	return bw.w.Flush()
}

// Close writes the terminating BINOUT_TABLE_NONE tag and flushes.
func (bw *Writer) Close() error {
	if bw.closed {
		return nil
	}
	if bw.inTable {
		if err := bw.EndTable(); err != nil {
			return err
		}
	}
	if err := bw.writeUint8(uint8(TableNone)); err != nil {
		return byflerr.Wrap(byflerr.KindIo, err, "writing end-of-stream tag")
	}
	bw.closed = true
	return bw.w.Flush()
}
