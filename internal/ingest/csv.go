package ingest

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/common"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/model"
)

// Encoding resolves a configured encoding name. Empty and utf-8 return nil.
func Encoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "_", "-")) {
	case "", "utf-8", "utf8":
		return nil, nil
	case "shift-jis", "sjis", "cp932":
		return japanese.ShiftJIS, nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252, nil
	case "iso-8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1, nil
	default:
		return nil, fmt.Errorf("%w: unsupported encoding %q", common.ErrInvalidConfig, name)
	}
}

// SkipBOM drops a leading UTF-8 byte order mark.
func SkipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	peeked, err := br.Peek(3)
	if err == nil && peeked[0] == 0xEF && peeked[1] == 0xBB && peeked[2] == 0xBF {
		_, _ = br.Discard(3)
	}
	return br
}

// CSVSource reads a delimited file with a header row.
type CSVSource struct {
	path    string
	decoder encoding.Encoding
	columns Columns
}

// NewCSVSource validates the encoding name and returns a source for path.
func NewCSVSource(path, encodingName string, cols Columns) (*CSVSource, error) {
	enc, err := Encoding(encodingName)
	if err != nil {
		return nil, err
	}
	return &CSVSource{path: path, decoder: enc, columns: cols.withDefaults()}, nil
}

// Load implements service.TransactionSource.
func (s *CSVSource) Load(ctx context.Context) ([]model.RawTransaction, model.SourceSchema, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, model.SourceSchema{}, common.DataLoadError(s.path, err)
	}
	defer func() { _ = f.Close() }()

	return s.read(ctx, f)
}

func (s *CSVSource) read(ctx context.Context, r io.Reader) ([]model.RawTransaction, model.SourceSchema, error) {
	if s.decoder != nil {
		r = transform.NewReader(r, s.decoder.NewDecoder())
	}
	reader := csv.NewReader(SkipBOM(r))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("file is empty")
		}
		return nil, model.SourceSchema{}, common.DataLoadError(s.path, err)
	}
	h, err := newHeaderMap(s.path, header, s.columns)
	if err != nil {
		return nil, model.SourceSchema{}, err
	}

	var rows []model.RawTransaction
	for n := 1; ; n++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, model.SourceSchema{}, common.DataLoadError(s.path, fmt.Errorf("line %d: %w", n+1, err))
		}
		if n%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, model.SourceSchema{}, err
			}
		}
		if blank(record) {
			continue
		}
		rows = append(rows, h.row(record, n))
	}
	return rows, h.schema(s.path), nil
}
