package dispatch

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/lib/pq/oid"
)

// FormatCode represents the encoding format of a given column
type FormatCode int16

const (
	// TextFormat is the default, text format.
	TextFormat FormatCode = 0
	// BinaryFormat is an alternative, binary, encoding.
	BinaryFormat FormatCode = 1
)

// Columns represent a collection of columns
type Columns []Column

// Column represents a table column and its attributes as described by a row
// description message.
// https://www.postgresql.org/docs/8.3/catalog-pg-attribute.html
type Column struct {
	Table        int32  // table id
	Name         string // column name
	AttrNo       int16  // column attribute no (optional)
	Oid          oid.Oid
	Width        int16
	TypeModifier int32
	Format       FormatCode
}

// RowDecoder scans the raw field bytes of data row messages into Go values
// using the column definitions of the preceding row description.
type RowDecoder struct {
	types   *pgtype.Map
	columns Columns
}

// NewRowDecoder constructs a new row decoder for the given columns using the
// default Postgres type map.
func NewRowDecoder(columns Columns) *RowDecoder {
	return &RowDecoder{
		types:   pgtype.NewMap(),
		columns: columns,
	}
}

// Columns returns the column definitions the decoder scans against.
func (decoder *RowDecoder) Columns() Columns {
	return decoder.columns
}

// Decode scans a single row of raw field bytes into Go values. NULL fields
// are represented as nil. Fields of an unknown type are returned as a string
// in text format and as raw bytes in binary format.
func (decoder *RowDecoder) Decode(fields [][]byte) ([]any, error) {
	if len(fields) != len(decoder.columns) {
		return nil, fmt.Errorf("unexpected row, %d columns are defined but %d fields were received", len(decoder.columns), len(fields))
	}

	values := make([]any, len(fields))
	for index, src := range fields {
		if src == nil {
			continue
		}

		column := decoder.columns[index]
		typed, ok := decoder.types.TypeForOID(uint32(column.Oid))
		if !ok {
			if column.Format == TextFormat {
				values[index] = string(src)
			} else {
				values[index] = append([]byte(nil), src...)
			}
			continue
		}

		value, err := typed.Codec.DecodeValue(decoder.types, uint32(column.Oid), int16(column.Format), src)
		if err != nil {
			return nil, err
		}

		values[index] = value
	}

	return values, nil
}

// Row returns a row parser feeding decoded Go values into the result stream
// of a query.
func (decoder *RowDecoder) Row() RowFn {
	return func(fields [][]byte) (any, error) {
		return decoder.Decode(fields)
	}
}
