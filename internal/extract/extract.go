package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"jobfit-backend/internal/shared/telemetry"
)

// FallbackText stands in for the résumé body when nothing could be read from the upload.
const FallbackText = "Could not extract text. Analyze based on placeholders if present."

const documentPart = "word/document.xml"

var (
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrMissingDocument   = errors.New("document.xml file not found")

	tagPattern = regexp.MustCompile(`<[^>]+>`)
	pdfMagic   = []byte("%PDF-")
	zipMagic   = []byte("PK")
)

// TextFromDocument returns the plain text of an uploaded résumé. It never fails:
// any read or format problem yields FallbackText so the analysis can still run.
func TextFromDocument(ctx context.Context, data []byte, fileName string) string {
	text, err := ExtractTextFromBytes(ctx, data)
	if err != nil {
		telemetry.Warn("extract.failed", map[string]any{
			"file_name": fileName,
			"size":      len(data),
			"error":     err.Error(),
		})
		return FallbackText
	}
	return text
}

// ExtractTextFromBytes extracts text from an in-memory DOCX or PDF payload.
func ExtractTextFromBytes(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	switch {
	case len(data) == 0:
		return "", errors.New("empty document")
	case bytes.HasPrefix(data, pdfMagic):
		return extractPDF(data)
	case bytes.HasPrefix(data, zipMagic):
		return extractDOCX(data)
	default:
		return "", ErrUnsupportedFormat
	}
}

func extractPDF(data []byte) (text string, err error) {
	// ledongthuc/pdf panics on some malformed inputs.
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("pdf: %v", rec)
		}
	}()
	pdfReader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

func extractDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var docFile *zip.File
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == documentPart {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", ErrMissingDocument
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	return stripDocxXML(string(raw)), nil
}

// stripDocxXML keeps character data and turns paragraph and line breaks into newlines.
// XML that does not decode is reduced by removing anything tag-shaped.
func stripDocxXML(raw string) string {
	decoder := xml.NewDecoder(strings.NewReader(raw))
	var buf strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return strings.TrimSpace(tagPattern.ReplaceAllString(raw, " "))
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.WriteString(string(t))
		case xml.StartElement:
			if t.Name.Local == "tab" {
				buf.WriteString("\t")
			}
		case xml.EndElement:
			if t.Name.Local == "p" || t.Name.Local == "br" {
				if buf.Len() > 0 {
					buf.WriteString("\n")
				}
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
