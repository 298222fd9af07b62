// Package binout implements byfl's streaming tag-length-value binary output
// format (spec.md §4.8), grounded on
// original_source/lib/byfl/binaryoutput.{h,cpp} and byfl-binary.cpp's
// big-endian, tag-prefixed writer discipline.
package binout

// Magic is the 7-byte signature every binary output stream begins with.
const Magic = "BYFLBIN"

// TableTag distinguishes the kinds of table that can follow the magic.
type TableTag uint8

const (
	TableNone TableTag = iota // no more tables follow (EOF)
	TableBasic
	TableKeyVal
)

// ColumnTag identifies a column's value type.
type ColumnTag uint8

const (
	ColNone ColumnTag = iota // terminates the column header
	ColUint64
	ColString
	ColBool
)

// RowTag distinguishes a data row from end-of-table.
type RowTag uint8

const (
	RowNone RowTag = iota // end of table
	RowData
)
