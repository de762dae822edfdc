package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/diewo77/go-sales-loader/internal/apperrors"
	"github.com/diewo77/go-sales-loader/internal/validation"
)

// Export columns.
const (
	ColNumeroPedido          = "numeroPedido"
	ColDtVenda               = "dtVenda"
	ColPrecoVenda            = "precoVenda"
	ColTotalDesconto         = "totalDesconto"
	ColNomeProduto           = "nomeProduto"
	ColCaracteristicaProduto = "caracteristicaProduto"
	ColQuantidade            = "quantidade" // optional
)

// RequiredColumns must be present in the header row.
var RequiredColumns = []string{
	ColNumeroPedido, ColDtVenda, ColPrecoVenda, ColTotalDesconto, ColNomeProduto, ColCaracteristicaProduto,
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// dateLayouts are tried in order. Exports use ISO dates; spreadsheets re-saved in
// pt-BR locale produce day-first dates.
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
}

// Row is one parsed export line.
type Row struct {
	Line                  int // 1-based, header is line 1
	NumeroPedido          string
	DtVenda               time.Time
	PrecoVenda            decimal.Decimal
	TotalDesconto         decimal.Decimal
	NomeProduto           string
	CaracteristicaProduto string
	Quantidade            *int // nil when the column is absent or empty
}

// Decode converts content to UTF-8 and strips a leading byte order mark.
func Decode(content []byte, encoding string) ([]byte, error) {
	switch strings.ToLower(encoding) {
	case "latin1", "iso-8859-1":
		out, err := io.ReadAll(transform.NewReader(bytes.NewReader(content), charmap.ISO8859_1.NewDecoder()))
		if err != nil {
			return nil, &apperrors.ParseError{Err: fmt.Errorf("decode latin1: %w", err)}
		}
		return out, nil
	default:
		content = bytes.TrimPrefix(content, utf8BOM)
		if !utf8.Valid(content) {
			return nil, &apperrors.ParseError{Err: errors.New("content is not valid UTF-8 (set CSV_ENCODING=latin1 for ISO-8859-1 exports)")}
		}
		return content, nil
	}
}

// DetectSeparator inspects the first line: ';' when it contains ';' and no ',',
// otherwise ','.
func DetectSeparator(content []byte) rune {
	first := content
	if i := bytes.IndexByte(content, '\n'); i >= 0 {
		first = content[:i]
	}
	if bytes.ContainsRune(first, ';') && !bytes.ContainsRune(first, ',') {
		return ';'
	}
	return ','
}

// ParseRows reads content with sep, treating the first record as the header.
// Fully blank records are skipped.
func ParseRows(content []byte, sep rune) ([]Row, error) {
	r := csv.NewReader(bytes.NewReader(content))
	r.Comma = sep
	r.TrimLeadingSpace = true
	r.LazyQuotes = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, &apperrors.ParseError{Line: 1, Err: errors.New("empty file")}
	}
	if err != nil {
		return nil, toParseError(err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}
	missing := validation.Violations{}
	validation.Columns(RequiredColumns, cols, missing)
	if !missing.Empty() {
		return nil, &apperrors.ParseError{Line: 1, Err: fmt.Errorf("missing required columns: %s", strings.Join(missing.Fields(), ", "))}
	}

	var rows []Row
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, toParseError(err)
		}
		if blank(rec) {
			continue
		}
		line, _ := r.FieldPos(0)
		row, err := parseRecord(rec, cols, line)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseRecord(rec []string, cols map[string]int, line int) (Row, error) {
	get := func(col string) string {
		i, ok := cols[col]
		if !ok || i >= len(rec) {
			return ""
		}
		v := strings.TrimSpace(rec[i])
		if isNull(v) {
			return ""
		}
		return v
	}

	row := Row{
		Line:                  line,
		NumeroPedido:          normalizeOrderNumber(get(ColNumeroPedido)),
		NomeProduto:           get(ColNomeProduto),
		CaracteristicaProduto: get(ColCaracteristicaProduto),
	}

	v := validation.Violations{}
	validation.Required(ColNumeroPedido, row.NumeroPedido, v)
	validation.Required(ColDtVenda, get(ColDtVenda), v)
	validation.Required(ColPrecoVenda, get(ColPrecoVenda), v)
	validation.Required(ColNomeProduto, row.NomeProduto, v)
	validation.Required(ColCaracteristicaProduto, row.CaracteristicaProduto, v)
	if !v.Empty() {
		return Row{}, &apperrors.ParseError{Line: line, Column: v.Fields()[0], Err: fmt.Errorf("invalid row: %s", v)}
	}

	var err error
	if row.DtVenda, err = parseDate(get(ColDtVenda)); err != nil {
		return Row{}, &apperrors.ParseError{Line: line, Column: ColDtVenda, Err: err}
	}
	if row.PrecoVenda, err = parseDecimal(get(ColPrecoVenda)); err != nil {
		return Row{}, &apperrors.ParseError{Line: line, Column: ColPrecoVenda, Err: err}
	}
	if raw := get(ColTotalDesconto); raw != "" {
		if row.TotalDesconto, err = parseDecimal(raw); err != nil {
			return Row{}, &apperrors.ParseError{Line: line, Column: ColTotalDesconto, Err: err}
		}
	}

	// Negative discounts and zero quantities load as exported.
	if raw := get(ColQuantidade); raw != "" {
		q, err := parseQuantity(raw)
		if err != nil {
			return Row{}, &apperrors.ParseError{Line: line, Column: ColQuantidade, Err: err}
		}
		row.Quantidade = &q
	}
	return row, nil
}

func toParseError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &apperrors.ParseError{Line: pe.Line, Err: pe.Err}
	}
	return &apperrors.ParseError{Err: err}
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func isNull(v string) bool {
	switch strings.ToLower(v) {
	case "", "nan", "null", "none", "na":
		return true
	}
	return false
}

// normalizeOrderNumber drops the ".0" suffix spreadsheets add to integer order numbers.
func normalizeOrderNumber(v string) string {
	if s, ok := strings.CutSuffix(v, ".0"); ok && s != "" && strings.Trim(s, "0123456789") == "" {
		return s
	}
	return v
}

func parseDate(v string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, v, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", v)
}

// parseDecimal accepts "1234.56", "1234,56" and "1.234,56".
func parseDecimal(v string) (decimal.Decimal, error) {
	s := strings.ReplaceAll(v, " ", "")
	s = strings.TrimPrefix(s, "R$")
	comma, dot := strings.LastIndex(s, ","), strings.LastIndex(s, ".")
	switch {
	case comma >= 0 && dot >= 0 && comma > dot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case comma >= 0 && dot >= 0:
		s = strings.ReplaceAll(s, ",", "")
	case comma >= 0:
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid decimal %q", v)
	}
	return d, nil
}

// parseQuantity accepts integers and integral decimals such as "2.0".
func parseQuantity(v string) (int, error) {
	d, err := parseDecimal(v)
	if err != nil {
		return 0, err
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("quantity %q is not an integer", v)
	}
	return int(d.IntPart()), nil
}
