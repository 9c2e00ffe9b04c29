package ingest

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/geosalud/acceso/internal/model"
)

// Table is a parsed tabular file: a header row plus data rows. Rows may have
// ragged lengths; consumers index columns through the header.
type Table struct {
	Header []string
	Rows   [][]string
	// Encoding is the charset that successfully decoded the file.
	Encoding string
}

// ReadCSV reads a delimited text file of unknown encoding. The leading bytes
// are sniffed to guess a charset; the full file is then decoded and parsed
// with the guess first and a fixed fallback chain after it, stopping at the
// first attempt that both decodes and parses. When every candidate fails the
// returned error is a *model.EncodingError.
func ReadCSV(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: read %s", path)
	}

	detected, err := DetectEncoding(path)
	if err != nil {
		return nil, err
	}
	// Single-byte decoders accept any byte sequence, so a misdetected
	// windows-1252 would silently mojibake a valid UTF-8 file. Bytes that
	// are valid UTF-8 are UTF-8; override the guess.
	if utf8.Valid(raw) {
		detected = "utf-8"
	}

	var tried []string
	for _, name := range candidateEncodings(detected) {
		enc := lookupEncoding(name)
		if enc == nil {
			continue
		}
		tried = append(tried, name)

		decoded, decErr := enc.NewDecoder().Bytes(raw)
		if decErr != nil {
			continue
		}
		// A UTF-8 "decode" never fails outright; reject it explicitly when
		// the raw bytes are not valid UTF-8 so the fallbacks get a turn.
		if canonicalCharset(name) == "utf-8" && !utf8.Valid(raw) {
			continue
		}

		table, parseErr := parseCSV(decoded)
		if parseErr != nil {
			zap.L().Debug("ingest: csv parse failed for candidate encoding",
				zap.String("path", path),
				zap.String("charset", name),
				zap.Error(parseErr),
			)
			continue
		}

		table.Encoding = name
		zap.L().Debug("ingest: csv parsed",
			zap.String("path", path),
			zap.String("charset", name),
			zap.Int("rows", len(table.Rows)),
		)
		return table, nil
	}

	return nil, &model.EncodingError{Path: path, Tried: tried}
}

func parseCSV(data []byte) (*Table, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")) // UTF-8 BOM

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var table Table
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "ingest: read csv row")
		}
		if table.Header == nil {
			table.Header = record
			continue
		}
		table.Rows = append(table.Rows, record)
	}

	if table.Header == nil {
		return nil, eris.New("ingest: empty csv file")
	}
	return &table, nil
}
