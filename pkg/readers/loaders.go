// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package readers

import (
	"archive/zip"
	"bytes"
	"compress/zlib"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
)

// structuredExtensions maps the file extensions spec §4.5 routes through the
// structured loader (one or more documents, subsequently split by Chunk)
// rather than the plain-text loader.
var structuredExtensions = map[string]bool{
	".pdf":  true,
	".csv":  true,
	".docx": true,
	".html": true,
	".htm":  true,
	".json": true,
	".epub": true,
}

// isMarkdownExt reports whether ext routes through SplitMarkdownByHeading
// instead of the structured loader or the chunker.
func isMarkdownExt(ext string) bool {
	return ext == ".md"
}

// loadStructured dispatches on extension and returns one or more plain-text
// documents extracted from content. Each returned document is subsequently
// split with Chunk by the caller.
func loadStructured(ext string, content []byte) ([]string, error) {
	switch strings.ToLower(ext) {
	case ".csv":
		return loadCSV(content)
	case ".json":
		return loadJSON(content)
	case ".html", ".htm":
		return []string{stripHTML(string(content))}, nil
	case ".docx":
		return loadDOCX(content)
	case ".epub":
		return loadEPUB(content)
	case ".pdf":
		return loadPDF(content)
	default:
		return []string{string(content)}, nil
	}
}

func loadCSV(content []byte) ([]string, error) {
	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1
	var sb strings.Builder
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		sb.WriteString(strings.Join(record, ", "))
		sb.WriteByte('\n')
	}
	return []string{sb.String()}, nil
}

// loadJSON flattens a JSON document into "key: value" lines. It does not
// attempt to reconstruct the original structure, only to make every scalar
// leaf searchable as text.
func loadJSON(content []byte) ([]string, error) {
	var doc any
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	var sb strings.Builder
	flattenJSON("", doc, &sb)
	return []string{sb.String()}, nil
}

func flattenJSON(prefix string, v any, sb *strings.Builder) {
	switch val := v.(type) {
	case map[string]any:
		for k, child := range val {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			flattenJSON(key, child, sb)
		}
	case []any:
		for i, child := range val {
			flattenJSON(fmt.Sprintf("%s[%d]", prefix, i), child, sb)
		}
	default:
		sb.WriteString(fmt.Sprintf("%s: %v\n", prefix, val))
	}
}

var htmlAnyTagPattern = regexp.MustCompile(`(?s)<[^>]*>`)
var whitespaceRunPattern = regexp.MustCompile(`\s+`)

// stripHTML extracts visible text from an HTML document. There is no HTML
// parsing library in this module's dependency set, so this works at the
// tag level rather than building a DOM: script/style bodies are dropped,
// every other tag is removed, and runs of whitespace are collapsed. This is
// good enough for search-index text; it does not handle malformed markup
// the way a real tokenizer would.
func stripHTML(doc string) string {
	doc = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`).ReplaceAllString(doc, " ")
	doc = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`).ReplaceAllString(doc, " ")
	doc = htmlAnyTagPattern.ReplaceAllString(doc, " ")
	doc = unescapeHTMLEntities(doc)
	doc = whitespaceRunPattern.ReplaceAllString(doc, " ")
	return strings.TrimSpace(doc)
}

var htmlEntities = map[string]string{
	"&amp;": "&", "&lt;": "<", "&gt;": ">", "&quot;": `"`, "&#39;": "'", "&nbsp;": " ",
}

func unescapeHTMLEntities(s string) string {
	for entity, repl := range htmlEntities {
		s = strings.ReplaceAll(s, entity, repl)
	}
	return s
}

// loadDOCX extracts the body text from a .docx package by reading
// word/document.xml out of the zip container and stripping its markup.
// Office Open XML is a zip of XML parts, so archive/zip plus a tag-level
// strip (no full OOXML object model) is sufficient to recover readable text.
func loadDOCX(content []byte) ([]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("read docx body: %w", err)
		}
		defer rc.Close()
		raw, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("read docx body: %w", err)
		}
		return []string{stripHTML(string(raw))}, nil
	}
	return nil, nil
}

// loadEPUB extracts text from every XHTML content document inside the EPUB
// container (itself a zip archive), in archive order. EPUB's own manifest/
// spine ordering (content.opf) is not consulted, so chapter order may not
// match the book's reading order; acceptable for a search index.
func loadEPUB(content []byte) ([]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open epub: %w", err)
	}
	var docs []string
	for _, f := range zr.File {
		lower := strings.ToLower(f.Name)
		if !strings.HasSuffix(lower, ".xhtml") && !strings.HasSuffix(lower, ".html") && !strings.HasSuffix(lower, ".htm") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			continue
		}
		raw, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}
		text := stripHTML(string(raw))
		if text != "" {
			docs = append(docs, text)
		}
	}
	return docs, nil
}

var pdfStreamPattern = regexp.MustCompile(`(?s)stream\r?\n(.*?)endstream`)
var pdfShowTextPattern = regexp.MustCompile(`\((?:[^()\\]|\\.)*\)\s*T[jJ]`)

// loadPDF recovers text by best-effort scanning of a PDF's content streams:
// each FlateDecode stream is inflated, then every "(...) Tj"/"TJ" text-show
// operator's literal string is extracted.
//
// Current Implementation:
// This does not parse the PDF object graph (xref table, page tree, fonts),
// so it cannot resolve encrypted streams, CID-keyed fonts, or non-Flate
// filters, and reading order follows stream order rather than page order.
//
// Future Improvement:
// A proper PDF object parser would walk the page tree and decode glyph IDs
// through the font's encoding, recovering exact reading order and handling
// any compression filter, not just Flate. No such library ships in this
// module's dependency set, so this scan is the practical fallback.
func loadPDF(content []byte) ([]string, error) {
	var sb strings.Builder
	for _, m := range pdfStreamPattern.FindAllSubmatch(content, -1) {
		raw := m[1]
		inflated, err := inflate(raw)
		if err != nil {
			continue
		}
		for _, tm := range pdfShowTextPattern.FindAll(inflated, -1) {
			sb.WriteString(pdfLiteralText(tm))
			sb.WriteByte(' ')
		}
	}
	return []string{sb.String()}, nil
}

func inflate(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func pdfLiteralText(operator []byte) string {
	open := bytes.IndexByte(operator, '(')
	closeIdx := bytes.LastIndexByte(operator, ')')
	if open < 0 || closeIdx <= open {
		return ""
	}
	literal := string(operator[open+1 : closeIdx])
	literal = strings.ReplaceAll(literal, `\(`, "(")
	literal = strings.ReplaceAll(literal, `\)`, ")")
	literal = strings.ReplaceAll(literal, `\\`, `\`)
	return literal
}

func extOf(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
