package refops

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/ginjaninja78/catalog-to-dolibarr/internal/archive"
	"github.com/ginjaninja78/catalog-to-dolibarr/internal/mapping"
	"github.com/ginjaninja78/catalog-to-dolibarr/internal/types"
	"github.com/ginjaninja78/catalog-to-dolibarr/internal/xlsxparser"
	"github.com/ginjaninja78/catalog-to-dolibarr/internal/xlsxwriter"
)

var lineBreak = regexp.MustCompile(`\r?\n`)

// ParseRefsFromText reads one reference per line, trimmed, skipping blanks.
func ParseRefsFromText(text string) []string {
	var refs []string
	for _, line := range lineBreak.Split(text, -1) {
		if line = strings.TrimSpace(line); line != "" {
			refs = append(refs, line)
		}
	}
	return refs
}

// ParseRefsFromWorkbook collects the reference column of every sheet.
// Row 0 of each sheet is the header; sheets without a recognizable reference
// header are skipped.
func ParseRefsFromWorkbook(r io.Reader) ([]string, error) {
	sheets, err := xlsxparser.ReadWorkbook(r)
	if err != nil {
		return nil, err
	}

	var refs []string
	for _, sheet := range sheets {
		if len(sheet.Rows) < 2 {
			continue
		}
		col := mapping.RefHeaders.FindColumn(sheet.Rows[0])
		if col < 0 {
			continue
		}
		for _, row := range sheet.Rows[1:] {
			if v := strings.TrimSpace(row.At(col).String()); v != "" {
				refs = append(refs, v)
			}
		}
	}
	return refs, nil
}

// ParseRefsFromArchive reads every .xlsx entry of a ZIP buffer, such as a
// split Dolibarr export.
func ParseRefsFromArchive(data []byte) ([]string, error) {
	files, err := archive.Extract(data, ".xlsx")
	if err != nil {
		return nil, err
	}

	var refs []string
	for _, file := range files {
		fileRefs, err := ParseRefsFromWorkbook(bytes.NewReader(file.Data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file.Name, err)
		}
		refs = append(refs, fileRefs...)
	}
	return refs, nil
}

// SheetName is the worksheet of a reference rename file.
const SheetName = "Modifications"

// OutputHeaders are the columns of a reference rename file.
var OutputHeaders = []string{"Ref", "Nouvelle Ref"}

// Table lays modifications out as old/new reference pairs.
func Table(mods []Modification) types.StringTable {
	rows := make([][]string, len(mods))
	for i, m := range mods {
		rows[i] = []string{m.Original, m.Modified}
	}
	return types.StringTable{Headers: OutputHeaders, Rows: rows}
}

// GenerateWorkbook serializes modifications into an XLSX rename file.
func GenerateWorkbook(mods []Modification) ([]byte, error) {
	return xlsxwriter.Bytes(SheetName, Table(mods))
}
