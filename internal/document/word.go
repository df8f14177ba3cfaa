package document

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// wordDocumentPart is the fixed OPC part holding a .docx file's body text.
const wordDocumentPart = "word/document.xml"

// loadWord extracts paragraph text from a .docx file. A .docx is an OPC zip
// container; the body lives in word/document.xml as WordprocessingML, where
// runs of text sit in <w:t> elements grouped into <w:p> paragraphs.
func loadWord(path string) (string, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open docx container: %w", err)
	}
	defer archive.Close()

	for _, file := range archive.File {
		if file.Name == wordDocumentPart {
			part, err := file.Open()
			if err != nil {
				return "", fmt.Errorf("open %s: %w", wordDocumentPart, err)
			}
			defer part.Close()
			return extractWordText(part)
		}
	}

	return "", fmt.Errorf("docx container has no %s part", wordDocumentPart)
}

// extractWordText walks the WordprocessingML token stream, collecting the
// character data of every <w:t> element and joining paragraphs with newlines.
func extractWordText(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)

	var sb strings.Builder
	inText := false

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse %s: %w", wordDocumentPart, err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}

	return strings.TrimRight(sb.String(), "\n"), nil
}
