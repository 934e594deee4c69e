package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	docxDefaultPart     = "word/document.xml"
	contentTypesPath    = "[Content_Types].xml"
	docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
)

// contentTypes is the subset of [Content_Types].xml needed to locate the main document part.
type contentTypes struct {
	Overrides []struct {
		PartName    string `xml:"PartName,attr"`
		ContentType string `xml:"ContentType,attr"`
	} `xml:"Override"`
}

// extractDOCX returns the text of a .docx file, one line per paragraph with a blank line
// between paragraphs. Runs inside a paragraph are concatenated as-is since Word splits
// words across runs freely.
func extractDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract DOCX: not a zip: %w", err)
	}
	partName := docxMainPart(zr)
	if partName == "" {
		partName = docxDefaultPart
	}
	f := findZipFile(zr, partName)
	if f == nil {
		return "", fmt.Errorf("extract DOCX: %s not found", partName)
	}
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("extract DOCX: open %s: %w", f.Name, err)
	}
	defer rc.Close()

	paragraphs, err := docxParagraphs(rc)
	if err != nil {
		return "", fmt.Errorf("extract DOCX: parse %s: %w", f.Name, err)
	}
	return strings.Join(paragraphs, "\n\n"), nil
}

// docxMainPart finds the main document part from [Content_Types].xml.
// Returns the name without leading slash, or "" when it cannot be determined.
func docxMainPart(zr *zip.Reader) string {
	f := findZipFile(zr, contentTypesPath)
	if f == nil {
		return ""
	}
	rc, err := f.Open()
	if err != nil {
		return ""
	}
	defer rc.Close()
	var ct contentTypes
	if err := xml.NewDecoder(rc).Decode(&ct); err != nil {
		return ""
	}
	for _, o := range ct.Overrides {
		if o.ContentType == docxMainContentType {
			return strings.TrimPrefix(o.PartName, "/")
		}
	}
	return ""
}

func findZipFile(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// docxParagraphs streams WordprocessingML and collects the text of each <w:p>.
// <w:tab/> becomes a tab and <w:br/> a line break. Empty paragraphs are dropped.
func docxParagraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)
	var (
		paragraphs []string
		cur        strings.Builder
		inText     bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				cur.WriteByte('\t')
			case "br", "cr":
				cur.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if p := strings.TrimSpace(cur.String()); p != "" {
					paragraphs = append(paragraphs, p)
				}
				cur.Reset()
			}
		case xml.CharData:
			if inText {
				cur.Write(t)
			}
		}
	}
	if p := strings.TrimSpace(cur.String()); p != "" {
		paragraphs = append(paragraphs, p)
	}
	return paragraphs, nil
}
