package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// EmptyMarker is appended to form labels that have no value, so the models
// can tell a blank field from a missing one.
const EmptyMarker = "[empty]"

var ErrNoDocumentPart = errors.New("word/document.xml not found")

// ExtractText returns the visible text of a .docx file, one paragraph per line.
func ExtractText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open docx: %w", err)
	}

	var part *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			part = f
			break
		}
	}
	if part == nil {
		return "", ErrNoDocumentPart
	}

	rc, err := part.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open document part: %w", err)
	}
	defer rc.Close()

	lines, err := paragraphs(rc)
	if err != nil {
		return "", err
	}

	for i, line := range lines {
		line = strings.TrimSpace(line)
		if strings.HasSuffix(line, ":") {
			line += " " + EmptyMarker
		}
		lines[i] = line
	}

	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}

func paragraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)

	var (
		lines  []string
		cur    strings.Builder
		inText bool
		inPara bool
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse document part: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				inPara = true
				cur.Reset()
			case "t":
				inText = true
			case "tab":
				cur.WriteByte('\t')
			case "br", "cr":
				cur.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				if inPara {
					lines = append(lines, strings.Split(cur.String(), "\n")...)
				}
				inPara = false
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText {
				cur.Write(t)
			}
		}
	}

	return lines, nil
}
