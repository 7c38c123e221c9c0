package converter

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// extractDOCX streams word/document.xml and keeps body order. Text is taken
// from every w:t wherever it sits (runs, hyperlinks, insertions, content
// controls). A paragraph ends a line; a table row ends a line with its cells
// joined by spaces.
func extractDOCX(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = zr.Close() }()

	content, err := readZipPart(&zr.Reader, "word/document.xml")
	if err != nil {
		return "", err
	}

	text, err := wordText(xml.NewDecoder(bytes.NewReader(content)))
	if err != nil {
		return "", fmt.Errorf("parse document.xml: %w", err)
	}
	return text, nil
}

func wordText(dec *xml.Decoder) (string, error) {
	var (
		lines  []string
		para   strings.Builder
		cells  [][]string // paragraphs of each open w:tc
		rows   [][]string // cells of each open w:tr
		inText bool
	)

	// emit routes a finished paragraph or row to the enclosing cell, or to
	// the document when outside any table
	emit := func(text string) {
		if n := len(cells); n > 0 {
			cells[n-1] = append(cells[n-1], text)
			return
		}
		lines = append(lines, text)
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "t":
				inText = true
			case "tab":
				para.WriteByte(' ')
			case "br", "cr":
				para.WriteByte('\n')
			case "tc":
				cells = append(cells, nil)
			case "tr":
				rows = append(rows, nil)
			}
		case xml.CharData:
			if inText {
				para.Write(el)
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				emit(para.String())
				para.Reset()
			case "tc":
				if n := len(cells); n > 0 {
					text := strings.Join(cells[n-1], " ")
					cells = cells[:n-1]
					if m := len(rows); m > 0 {
						rows[m-1] = append(rows[m-1], text)
					}
				}
			case "tr":
				if n := len(rows); n > 0 {
					text := strings.Join(rows[n-1], " ")
					rows = rows[:n-1]
					emit(text)
				}
			}
		}
	}
	return strings.Join(lines, "\n"), nil
}

// sharedStrings mirrors xl/sharedStrings.xml
type sharedStrings struct {
	Items []struct {
		Text string `xml:"t"`
		Runs []struct {
			Text string `xml:"t"`
		} `xml:"r"`
	} `xml:"si"`
}

// worksheet mirrors xl/worksheets/sheetN.xml
type worksheet struct {
	Rows []struct {
		Cells []struct {
			Type   string `xml:"t,attr"`
			Value  string `xml:"v"`
			Inline struct {
				Text string `xml:"t"`
			} `xml:"is"`
		} `xml:"c"`
	} `xml:"sheetData>row"`
}

func extractXLSX(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = zr.Close() }()

	var shared []string
	if data, err := readZipPart(&zr.Reader, "xl/sharedStrings.xml"); err == nil {
		var ss sharedStrings
		if err := xml.Unmarshal(data, &ss); err != nil {
			return "", fmt.Errorf("parse sharedStrings.xml: %w", err)
		}
		for _, item := range ss.Items {
			text := item.Text
			for _, r := range item.Runs {
				text += r.Text
			}
			shared = append(shared, text)
		}
	}

	sheets := make([]*zip.File, 0)
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, "xl/worksheets/") && strings.HasSuffix(f.Name, ".xml") {
			sheets = append(sheets, f)
		}
	}
	if len(sheets) == 0 {
		return "", fmt.Errorf("no worksheets found")
	}
	sort.Slice(sheets, func(i, j int) bool { return sheetIndex(sheets[i].Name) < sheetIndex(sheets[j].Name) })

	var lines []string
	for _, f := range sheets {
		data, err := readZipFile(f)
		if err != nil {
			return "", err
		}
		var ws worksheet
		if err := xml.Unmarshal(data, &ws); err != nil {
			return "", fmt.Errorf("parse %s: %w", f.Name, err)
		}
		for _, row := range ws.Rows {
			values := make([]string, 0, len(row.Cells))
			for _, c := range row.Cells {
				v := cellValue(c.Type, c.Value, c.Inline.Text, shared)
				if v != "" {
					values = append(values, v)
				}
			}
			if len(values) > 0 {
				lines = append(lines, strings.Join(values, " "))
			}
		}
	}
	return strings.Join(lines, "\n"), nil
}

func cellValue(typ, value, inline string, shared []string) string {
	switch typ {
	case "s":
		idx, err := strconv.Atoi(value)
		if err != nil || idx < 0 || idx >= len(shared) {
			return ""
		}
		return shared[idx]
	case "inlineStr":
		return inline
	default:
		return value
	}
}

// sheetIndex orders sheet2.xml before sheet10.xml
func sheetIndex(name string) int {
	base := strings.TrimSuffix(name[strings.LastIndex(name, "/")+1:], ".xml")
	n, err := strconv.Atoi(strings.TrimPrefix(base, "sheet"))
	if err != nil {
		return int(^uint(0) >> 1)
	}
	return n
}

func readZipPart(r *zip.Reader, name string) ([]byte, error) {
	for _, f := range r.File {
		if f.Name == name {
			return readZipFile(f)
		}
	}
	return nil, fmt.Errorf("missing part %s", name)
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}
