// Package ingest reads the raw input files: delimited text of unknown
// encoding, XLSX workbooks, and zipped shapefile archives.
package ingest

import (
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/saintfish/chardet"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
)

// sniffLimit bounds how much of a file is read for encoding detection.
const sniffLimit = 64 * 1024

// fallbackEncodings is the fixed chain tried after the detected encoding.
var fallbackEncodings = []string{"utf-8", "windows-1252", "iso-8859-1"}

// DetectEncoding sniffs the leading bytes of a file and returns the most
// likely charset name, or "" when detection is inconclusive.
func DetectEncoding(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", eris.Wrapf(err, "ingest: open %s", path)
	}
	defer func() { _ = f.Close() }()

	prefix := make([]byte, sniffLimit)
	n, err := io.ReadFull(f, prefix)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", eris.Wrapf(err, "ingest: read prefix of %s", path)
	}
	prefix = prefix[:n]
	if len(prefix) == 0 {
		return "", nil
	}

	result, err := chardet.NewTextDetector().DetectBest(prefix)
	if err != nil {
		zap.L().Debug("ingest: charset detection inconclusive",
			zap.String("path", path), zap.Error(err))
		return "", nil
	}
	return result.Charset, nil
}

// candidateEncodings returns the ordered, deduplicated list of charset names
// to attempt for a file: the detected one first, then the fixed fallbacks.
func candidateEncodings(detected string) []string {
	out := make([]string, 0, len(fallbackEncodings)+1)
	seen := make(map[string]bool)

	add := func(name string) {
		if name == "" {
			return
		}
		canon := canonicalCharset(name)
		if seen[canon] {
			return
		}
		seen[canon] = true
		out = append(out, name)
	}

	add(detected)
	for _, name := range fallbackEncodings {
		add(name)
	}
	return out
}

// lookupEncoding resolves a charset name to a decoder. Unknown names yield
// nil so the caller can skip the candidate.
func lookupEncoding(name string) encoding.Encoding {
	// htmlindex follows the WHATWG index, which folds iso-8859-1 into
	// windows-1252. The fallback chain needs true latin-1 as its own
	// candidate, so resolve it through charmap instead.
	if isLatin1(name) {
		return charmap.ISO8859_1
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		zap.L().Debug("ingest: unknown charset name", zap.String("charset", name))
		return nil
	}
	return enc
}

// canonicalCharset maps a charset name to its canonical form for
// deduplication, falling back to the lowercased input.
func canonicalCharset(name string) string {
	if isLatin1(name) {
		return "iso-8859-1"
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return strings.ToLower(name)
	}
	canon, err := htmlindex.Name(enc)
	if err != nil {
		return strings.ToLower(name)
	}
	return canon
}

func isLatin1(name string) bool {
	switch strings.ToLower(name) {
	case "iso-8859-1", "iso8859-1", "latin-1", "latin1":
		return true
	}
	return false
}
