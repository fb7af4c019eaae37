// Package testutil builds in-memory DOCX packages for tests.
package testutil

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"
)

const (
	contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="xml" ContentType="application/xml"/><Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/></Types>`

	documentHead = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`
	documentTail = `<w:sectPr/></w:body></w:document>`
)

// Paragraph renders one w:p whose runs carry the given texts, one run per entry.
func Paragraph(runs ...string) string {
	var b strings.Builder
	b.WriteString("<w:p>")
	for _, r := range runs {
		b.WriteString(`<w:r><w:rPr><w:b/></w:rPr><w:t xml:space="preserve">`)
		b.WriteString(r)
		b.WriteString("</w:t></w:r>")
	}
	b.WriteString("</w:p>")
	return b.String()
}

// DocumentXML wraps body paragraphs into a complete word/document.xml.
func DocumentXML(body ...string) string {
	return documentHead + strings.Join(body, "") + documentTail
}

// Docx zips documentXML plus any extra parts (path -> content) into a DOCX package.
func Docx(t testing.TB, documentXML string, extra map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	write := func(name, content string) {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	write("[Content_Types].xml", contentTypesXML)
	write("word/document.xml", documentXML)
	for name, content := range extra {
		write(name, content)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

// ReadPart returns the content of one part of a DOCX package.
func ReadPart(t testing.TB, data []byte, name string) string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", name, err)
		}
		defer rc.Close()
		var out bytes.Buffer
		if _, err := out.ReadFrom(rc); err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		return out.String()
	}
	t.Fatalf("part %s not found", name)
	return ""
}
