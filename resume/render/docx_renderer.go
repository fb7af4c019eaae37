package render

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// Kind tags how the output document was produced.
type Kind string

const (
	KindRendered           Kind = "rendered"
	KindFellBackToOriginal Kind = "fell_back_to_original"
)

// Outcome is the renderer's answer. Document is always usable: on fallback it
// is the untouched input.
type Outcome struct {
	Kind       Kind
	Document   []byte
	Reason     error
	Replaced   int
	Unresolved []string
}

func (o Outcome) FellBack() bool { return o.Kind == KindFellBackToOriginal }

var (
	ErrNotDocx = errors.New("not a docx package")

	templatePartPattern = regexp.MustCompile(`^word/(document|header[0-9]*|footer[0-9]*)\.xml$`)
)

// Render substitutes {{key}} placeholders in the document body, headers and
// footers. Any failure returns the original bytes with the reason attached.
func Render(doc []byte, replacements map[string]string) Outcome {
	out, replaced, unresolved, err := renderDocx(doc, replacements)
	if err != nil {
		return Outcome{Kind: KindFellBackToOriginal, Document: doc, Reason: err}
	}
	return Outcome{Kind: KindRendered, Document: out, Replaced: replaced, Unresolved: unresolved}
}

func renderDocx(doc []byte, replacements map[string]string) ([]byte, int, []string, error) {
	reader, err := zip.NewReader(bytes.NewReader(doc), int64(len(doc)))
	if err != nil {
		return nil, 0, nil, fmt.Errorf("%w: %v", ErrNotDocx, err)
	}

	rendered := make(map[*zip.File][]byte)
	var (
		replaced    int
		unresolved  []string
		sawDocument bool
	)
	for _, file := range reader.File {
		name := normalizeZipName(file.Name)
		if !templatePartPattern.MatchString(name) {
			continue
		}
		if name == "word/document.xml" {
			sawDocument = true
		}
		content, err := readZipFile(file)
		if err != nil {
			return nil, 0, nil, fmt.Errorf("read %s: %w", name, err)
		}
		updated, stats, err := renderPart(content, replacements)
		if err != nil {
			return nil, 0, nil, fmt.Errorf("%s: %w", name, err)
		}
		replaced += stats.replaced
		unresolved = append(unresolved, stats.unresolved...)
		if !bytes.Equal(updated, content) {
			rendered[file] = updated
		}
	}
	if !sawDocument {
		return nil, 0, nil, fmt.Errorf("%w: word/document.xml missing", ErrNotDocx)
	}
	if len(rendered) == 0 {
		return doc, replaced, unresolved, nil
	}

	var output bytes.Buffer
	writer := zip.NewWriter(&output)
	for _, file := range reader.File {
		content, ok := rendered[file]
		if !ok {
			content, err = readZipFile(file)
			if err != nil {
				return nil, 0, nil, fmt.Errorf("read %s: %w", file.Name, err)
			}
		}
		if err := writeZipFile(writer, file, content); err != nil {
			return nil, 0, nil, fmt.Errorf("write %s: %w", file.Name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, 0, nil, err
	}
	return output.Bytes(), replaced, unresolved, nil
}

func readZipFile(file *zip.File) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	return content, nil
}

func writeZipFile(writer *zip.Writer, source *zip.File, content []byte) error {
	header := source.FileHeader
	header.Name = normalizeZipName(source.Name)
	header.Method = zip.Deflate

	dst, err := writer.CreateHeader(&header)
	if err != nil {
		return err
	}
	if _, err := dst.Write(content); err != nil {
		return err
	}
	return nil
}

func normalizeZipName(name string) string {
	return strings.ReplaceAll(name, "\\", "/")
}
