package binout

import (
	"bufio"
	"io"
	"time"

	"github.com/lanl/byflgo/internal/byflerr"
)

// Handler receives callback-driven parse events, per spec.md §8 scenario 6's
// table_begin/column_begin/column_*/column_end/row_begin/data_*/row_end
// sequence. Returning a non-nil error from any method aborts parsing of the
// current file, per spec.md §7's single-error-callback unwinding policy.
type Handler interface {
	TableBegin(name string) error
	ColumnBegin(name string, typ ColumnTag) error
	ColumnEnd() error
	RowBegin() error
	DataUint64(v uint64) error
	DataString(v string) error
	DataBool(v bool) error
	RowEnd() error
	TableEnd() error
}

// Parser reads a binout stream and drives a Handler.
type Parser struct {
	r        *bufio.Reader
	liveTail bool
	opts     Options
}

// Options configures live-tail parsing (spec.md §5: "the parser sleeps on
// EOF with exponential backoff" for a still-growing file).
type Options struct {
	// LiveTail enables retrying reads on EOF with exponential backoff
	// instead of treating EOF as end of stream, for tailing a file still
	// being written.
	LiveTail bool
	// InitialBackoff and MaxBackoff bound the retry delay (defaults 1s/32s
	// if zero).
	InitialBackoff, MaxBackoff time.Duration
	// Sleep is injectable for tests; defaults to time.Sleep.
	Sleep func(time.Duration)
}

// NewParser creates a parser reading from r.
func NewParser(r io.Reader, opts Options) *Parser {
	if opts.InitialBackoff == 0 {
		opts.InitialBackoff = time.Second
	}
	if opts.MaxBackoff == 0 {
		opts.MaxBackoff = 32 * time.Second
	}
	if opts.Sleep == nil {
		opts.Sleep = time.Sleep
	}
	return &Parser{r: bufio.NewReader(r), liveTail: opts.LiveTail, opts: opts}
}

func (p *Parser) readFull(buf []byte) error {
	n := 0
	backoff := p.opts.InitialBackoff
	for n < len(buf) {
		m, err := p.r.Read(buf[n:])
		n += m
		if err == nil {
			continue
		}
		if err != io.EOF {
			return byflerr.Wrap(byflerr.KindIo, err, "reading binout stream")
		}
		if !p.liveTail {
			return byflerr.Io("unexpected EOF: read %d of %d bytes", n, len(buf))
		}
		p.opts.Sleep(backoff)
		backoff *= 2
		if backoff > p.opts.MaxBackoff {
			backoff = p.opts.MaxBackoff
		}
	}
	return nil
}

func (p *Parser) readUint8() (uint8, error) {
	var buf [1]byte
	if err := p.readFull(buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (p *Parser) readUint64() (uint64, error) {
	var buf [8]byte
	if err := p.readFull(buf[:]); err != nil {
		return 0, err
	}
	var v uint64
	for _, b := range buf {
		v = v<<8 | uint64(b)
	}
	return v, nil
}

func (p *Parser) readUint16() (uint16, error) {
	var buf [2]byte
	if err := p.readFull(buf[:]); err != nil {
		return 0, err
	}
	return uint16(buf[0])<<8 | uint16(buf[1]), nil
}

func (p *Parser) readString() (string, error) {
	n, err := p.readUint16()
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if err := p.readFull(buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func (p *Parser) readBool() (bool, error) {
	v, err := p.readUint8()
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// CheckMagic reads and validates the 7-byte magic header.
func (p *Parser) CheckMagic() error {
	buf := make([]byte, len(Magic))
	if err := p.readFull(buf); err != nil {
		return err
	}
	if string(buf) != Magic {
		return byflerr.Format("bad magic: got %q, want %q", buf, Magic)
	}
	return nil
}

// Run drives handler through every table in the stream until
// BINOUT_TABLE_NONE (or, with LiveTail, forever).
func (p *Parser) Run(handler Handler) error {
	for {
		tag, err := p.readUint8()
		if err != nil {
			return err
		}
		switch TableTag(tag) {
		case TableNone:
			return nil
		case TableBasic:
			if err := p.runTable(handler, false); err != nil {
				return err
			}
		case TableKeyVal:
			if err := p.runTable(handler, true); err != nil {
				return err
			}
		default:
			return byflerr.Format("unknown table tag %d", tag)
		}
	}
}

// runBufferedRow implements key:value tables' row handling (spec.md §4.8):
// the whole row is read off the wire first, then its values are delivered
// type-indexed -- every uint64 column in column order, then every string
// column, then every bool column -- rather than interleaved in raw column
// order as runTable does for basic tables.
func (p *Parser) runBufferedRow(handler Handler, cols []ColumnTag) error {
	var u64s []uint64
	var strs []string
	var bools []bool
	for _, colTag := range cols {
		switch colTag {
		case ColUint64:
			v, err := p.readUint64()
			if err != nil {
				return err
			}
			u64s = append(u64s, v)
		case ColString:
			v, err := p.readString()
			if err != nil {
				return err
			}
			strs = append(strs, v)
		case ColBool:
			v, err := p.readBool()
			if err != nil {
				return err
			}
			bools = append(bools, v)
		}
	}

	if err := handler.RowBegin(); err != nil {
		return err
	}
	for _, v := range u64s {
		if err := handler.DataUint64(v); err != nil {
			return err
		}
	}
	for _, v := range strs {
		if err := handler.DataString(v); err != nil {
			return err
		}
	}
	for _, v := range bools {
		if err := handler.DataBool(v); err != nil {
			return err
		}
	}
	return handler.RowEnd()
}

func (p *Parser) runTable(handler Handler, buffered bool) error {
	name, err := p.readString()
	if err != nil {
		return err
	}
	if err := handler.TableBegin(name); err != nil {
		return err
	}

	var cols []ColumnTag
	for {
		colTagByte, err := p.readUint8()
		if err != nil {
			return err
		}
		colTag := ColumnTag(colTagByte)
		if colTag == ColNone {
			break
		}
		colName, err := p.readString()
		if err != nil {
			return err
		}
		if err := handler.ColumnBegin(colName, colTag); err != nil {
			return err
		}
		if err := handler.ColumnEnd(); err != nil {
			return err
		}
		switch colTag {
		case ColUint64, ColString, ColBool:
			cols = append(cols, colTag)
		default:
			return byflerr.Format("unknown column tag %d", colTagByte)
		}
	}

	for {
		rowTagByte, err := p.readUint8()
		if err != nil {
			return err
		}
		switch RowTag(rowTagByte) {
		case RowNone:
			return handler.TableEnd()
		case RowData:
			if buffered {
				if err := p.runBufferedRow(handler, cols); err != nil {
					return err
				}
				continue
			}
			if err := handler.RowBegin(); err != nil {
				return err
			}
			for _, colTag := range cols {
				switch colTag {
				case ColUint64:
					v, err := p.readUint64()
					if err != nil {
						return err
					}
					if err := handler.DataUint64(v); err != nil {
						return err
					}
				case ColString:
					v, err := p.readString()
					if err != nil {
						return err
					}
					if err := handler.DataString(v); err != nil {
						return err
					}
				case ColBool:
					v, err := p.readBool()
					if err != nil {
						return err
					}
					if err := handler.DataBool(v); err != nil {
						return err
					}
				}
			}
			if err := handler.RowEnd(); err != nil {
				return err
			}
		default:
			return byflerr.Format("unknown row tag %d", rowTagByte)
		}
	}
}
