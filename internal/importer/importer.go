// Package importer reads demand lists and stock lists from CSV and Excel
// files, and plate outlines from DXF drawings. It supports automatic
// delimiter detection, flexible column mapping, and case-insensitive header
// recognition.
package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/piwi3910/barcut/internal/model"
)

// ImportResult holds the results of an import operation.
type ImportResult struct {
	Profiles []model.ProfilePart
	Plates   []model.PlatePart
	Stock    []model.StockUnit
	Errors   []string
	Warnings []string
}

// PieceCount returns the number of physical pieces imported.
func (r ImportResult) PieceCount() int {
	n := 0
	for _, p := range r.Profiles {
		n += p.Quantity
	}
	for _, p := range r.Plates {
		n += p.Quantity
	}
	return n
}

// ColumnMapping maps semantic column roles to their indices in the data.
// -1 means the column is absent.
type ColumnMapping struct {
	ID         int
	Label      int
	Profile    int
	Dimensions int
	Grade      int
	Length     int
	Width      int
	Thickness  int
	Quantity   int
	Kind       int
	Cost       int
}

// headerAliases maps canonical column names to their accepted aliases (all lowercase).
var headerAliases = map[string][]string{
	"id":         {"id", "unit", "unit id", "tag", "heat"},
	"label":      {"label", "name", "part", "part name", "mark", "position", "pos", "description", "desc"},
	"profile":    {"profile", "type", "section", "shape"},
	"dimensions": {"dimensions", "dimension", "dims", "size"},
	"grade":      {"grade", "material", "steel", "quality"},
	"length":     {"length", "len", "l", "cut length"},
	"width":      {"width", "w", "breadth"},
	"thickness":  {"thickness", "thk", "t"},
	"quantity":   {"quantity", "qty", "count", "num", "amount", "pcs", "pieces"},
	"kind":       {"kind", "source", "stock type"},
	"cost":       {"cost", "price", "cost per meter", "price per meter", "eur/m"},
}

// plateProfiles are profile values that mark a row as a plate.
var plateProfiles = map[string]bool{"PL": true, "PLATE": true, "FLAT PLATE": true, "BL": true}

// DetectCSVDelimiter reads the file content and determines the most likely CSV delimiter.
// It tries comma, semicolon, tab, and pipe. The delimiter that produces the most
// consistent (non-one) column count across lines wins.
func DetectCSVDelimiter(data []byte) rune {
	candidates := []rune{',', ';', '\t', '|'}
	bestDelimiter := ','
	bestScore := 0

	for _, delim := range candidates {
		reader := csv.NewReader(bytes.NewReader(data))
		reader.Comma = delim
		reader.LazyQuotes = true
		reader.FieldsPerRecord = -1 // Allow variable field counts

		records, err := reader.ReadAll()
		if err != nil || len(records) < 1 {
			continue
		}

		// Only consider delimiters that produce more than 1 column
		firstCols := len(records[0])
		if firstCols < 2 {
			continue
		}

		score := 0
		for _, row := range records {
			if len(row) == firstCols {
				score++
			}
		}

		// Prefer delimiters with higher consistency and more columns
		weighted := score*10 + firstCols
		if weighted > bestScore {
			bestScore = weighted
			bestDelimiter = delim
		}
	}

	return bestDelimiter
}

// emptyMapping returns a mapping with every column absent.
func emptyMapping() ColumnMapping {
	return ColumnMapping{
		ID: -1, Label: -1, Profile: -1, Dimensions: -1, Grade: -1,
		Length: -1, Width: -1, Thickness: -1, Quantity: -1, Kind: -1, Cost: -1,
	}
}

// DetectColumns examines a header row and returns a ColumnMapping.
// It performs case-insensitive matching against known aliases for each column role.
// Returns the mapping and true if a header was detected, or the default positional
// demand mapping (Label, Profile, Dimensions, Grade, Length, Quantity) and false.
func DetectColumns(row []string) (ColumnMapping, bool) {
	mapping := emptyMapping()
	slots := map[string]*int{
		"id":         &mapping.ID,
		"label":      &mapping.Label,
		"profile":    &mapping.Profile,
		"dimensions": &mapping.Dimensions,
		"grade":      &mapping.Grade,
		"length":     &mapping.Length,
		"width":      &mapping.Width,
		"thickness":  &mapping.Thickness,
		"quantity":   &mapping.Quantity,
		"kind":       &mapping.Kind,
		"cost":       &mapping.Cost,
	}

	isHeader := false
	for i, cell := range row {
		normalized := strings.ToLower(strings.TrimSpace(cell))
		for role, aliases := range headerAliases {
			for _, alias := range aliases {
				if normalized == alias && *slots[role] == -1 {
					*slots[role] = i
					isHeader = true
				}
			}
		}
	}

	if !isHeader {
		m := emptyMapping()
		m.Label, m.Profile, m.Dimensions, m.Grade, m.Length, m.Quantity = 0, 1, 2, 3, 4, 5
		return m, false
	}

	return mapping, true
}

// getCell safely retrieves a cell value from a row by column index.
// Returns empty string if the index is out of range or negative.
func getCell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// parseMM parses a millimeter value. Decimals are rounded to whole mm.
func parseMM(s string) (int, error) {
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f < 0 {
		return int(f - 0.5), nil
	}
	return int(f + 0.5), nil
}

// splitProfile separates "HEA100" or "RHS 100x50x4" into type and dimensions.
func splitProfile(s string) (string, string) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, " -"); i > 0 {
		return s[:i], strings.TrimSpace(s[i+1:])
	}
	for i, r := range s {
		if r >= '0' && r <= '9' {
			return s[:i], s[i:]
		}
	}
	return s, ""
}

// parseDemandRow extracts a profile part or a plate part from a row.
// Exactly one of the returned pointers is non-nil when errMsg is empty.
func parseDemandRow(row []string, mapping ColumnMapping, rowLabel string, partCount int) (*model.ProfilePart, *model.PlatePart, string, string) {
	label := getCell(row, mapping.Label)
	if label == "" {
		label = fmt.Sprintf("Part %d", partCount+1)
	}

	lengthStr := getCell(row, mapping.Length)
	if lengthStr == "" {
		return nil, nil, fmt.Sprintf("%s: Missing length value", rowLabel), ""
	}
	length, err := parseMM(lengthStr)
	if err != nil {
		return nil, nil, fmt.Sprintf("%s: Invalid length '%s'", rowLabel, lengthStr), ""
	}

	qty := 1
	if qtyStr := getCell(row, mapping.Quantity); qtyStr != "" {
		qty, err = strconv.Atoi(qtyStr)
		if err != nil {
			return nil, nil, fmt.Sprintf("%s: Invalid quantity '%s'", rowLabel, qtyStr), ""
		}
	}
	if length <= 0 || qty <= 0 {
		return nil, nil, fmt.Sprintf("%s: Length and quantity must be positive", rowLabel), ""
	}

	profile := getCell(row, mapping.Profile)
	dims := getCell(row, mapping.Dimensions)
	grade := getCell(row, mapping.Grade)
	thicknessStr := getCell(row, mapping.Thickness)

	if plateProfiles[strings.ToUpper(profile)] || thicknessStr != "" {
		return parsePlate(row, mapping, rowLabel, label, length, qty, dims, grade, thicknessStr)
	}

	if dims == "" {
		profile, dims = splitProfile(profile)
	}
	part := model.NewProfilePart(label, model.ProfileSpec{Type: profile, Dimensions: dims, Grade: grade}, length, qty)
	if id := getCell(row, mapping.ID); id != "" {
		part.ID = id
	}

	// Incomplete specs still go through; the planner reports them per key
	var warning string
	if !part.Profile.Complete() {
		warning = fmt.Sprintf("%s: Profile '%s' is missing type, dimensions or grade", rowLabel, part.Profile.Key())
	}
	return &part, nil, "", warning
}

func parsePlate(row []string, mapping ColumnMapping, rowLabel, label string, length, qty int, dims, grade, thicknessStr string) (*model.ProfilePart, *model.PlatePart, string, string) {
	widthStr := getCell(row, mapping.Width)
	// Plate rows may carry "10x200" (thickness x width) in the dimensions column
	if parts := strings.Split(strings.ToLower(dims), "x"); (thicknessStr == "" || widthStr == "") && len(parts) == 2 {
		if thicknessStr == "" {
			thicknessStr = strings.TrimSpace(parts[0])
		}
		if widthStr == "" {
			widthStr = strings.TrimSpace(parts[1])
		}
	}

	thickness, err := parseMM(thicknessStr)
	if err != nil || thickness <= 0 {
		return nil, nil, fmt.Sprintf("%s: Invalid plate thickness '%s'", rowLabel, thicknessStr), ""
	}
	width, err := parseMM(widthStr)
	if err != nil || width <= 0 {
		return nil, nil, fmt.Sprintf("%s: Invalid plate width '%s'", rowLabel, widthStr), ""
	}

	plate := model.NewPlatePart(label, thickness, width, length, grade, qty)
	if id := getCell(row, mapping.ID); id != "" {
		plate.ID = id
	}
	var warning string
	if grade == "" {
		warning = fmt.Sprintf("%s: Plate has no material", rowLabel)
	}
	return nil, &plate, "", warning
}

// parseStockRow extracts a stock unit from a row.
func parseStockRow(row []string, mapping ColumnMapping, rowLabel string) (model.StockUnit, string, string) {
	profile := getCell(row, mapping.Profile)
	dims := getCell(row, mapping.Dimensions)
	if dims == "" {
		profile, dims = splitProfile(profile)
	}
	spec := model.ProfileSpec{Type: profile, Dimensions: dims, Grade: getCell(row, mapping.Grade)}
	if !spec.Complete() {
		return model.StockUnit{}, fmt.Sprintf("%s: Profile '%s' is missing type, dimensions or grade", rowLabel, spec.Key()), ""
	}

	lengthStr := getCell(row, mapping.Length)
	length, err := parseMM(lengthStr)
	if err != nil || length <= 0 {
		return model.StockUnit{}, fmt.Sprintf("%s: Invalid length '%s'", rowLabel, lengthStr), ""
	}

	kind, err := model.ParseSourceKind(getCell(row, mapping.Kind))
	if err != nil {
		return model.StockUnit{}, fmt.Sprintf("%s: %v", rowLabel, err), ""
	}

	cost := decimal.Zero
	var warning string
	if costStr := getCell(row, mapping.Cost); costStr != "" {
		cost, err = decimal.NewFromString(strings.ReplaceAll(costStr, ",", "."))
		if err != nil {
			cost = decimal.Zero
			warning = fmt.Sprintf("%s: Invalid cost '%s', defaulting to 0", rowLabel, costStr)
		}
	}

	unit := model.NewStockUnit(kind, spec.Key(), length, cost)
	if id := getCell(row, mapping.ID); id != "" {
		unit.ID = id
	}
	unit.Label = getCell(row, mapping.Label)
	return unit, "", warning
}

// isEmptyRow returns true if the row has no meaningful content.
func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// readCSVRecords reads a CSV file with delimiter detection.
func readCSVRecords(path string) ([][]string, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("Cannot open file: %v", err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil, fmt.Errorf("File is empty")
	}

	var warnings []string
	delimiter := DetectCSVDelimiter(data)
	if delimiter != ',' {
		delimName := map[rune]string{';': "semicolon", '\t': "tab", '|': "pipe"}[delimiter]
		warnings = append(warnings, fmt.Sprintf("Detected %s delimiter", delimName))
	}

	records, err := readCSV(bytes.NewReader(data), delimiter)
	if err != nil {
		return nil, warnings, err
	}
	return records, warnings, nil
}

func readCSV(r io.Reader, delimiter rune) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("Cannot read CSV: %v", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("File is empty")
	}
	return records, nil
}

// readExcelRows reads the first sheet of an Excel file.
func readExcelRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("Cannot open Excel file: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("Excel file has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("Cannot read Excel data: %v", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("Sheet is empty")
	}
	return rows, nil
}

// ImportCSV imports demand from a CSV file.
// It automatically detects the delimiter and maps columns by header names.
// Supports comma, semicolon, tab, and pipe delimiters.
func ImportCSV(path string) ImportResult {
	records, warnings, err := readCSVRecords(path)
	if err != nil {
		return ImportResult{Errors: []string{err.Error()}, Warnings: warnings}
	}
	return importFromRows(records, "Line", warnings)
}

// ImportCSVFromReader imports demand from a CSV reader with a specific delimiter.
// This is useful for testing or when the delimiter is already known.
func ImportCSVFromReader(reader io.Reader, delimiter rune) ImportResult {
	records, err := readCSV(reader, delimiter)
	if err != nil {
		return ImportResult{Errors: []string{err.Error()}}
	}
	return importFromRows(records, "Line", nil)
}

// ImportExcel imports demand from an Excel (.xlsx) file.
// Reads the first sheet and auto-detects column mapping from headers.
func ImportExcel(path string) ImportResult {
	rows, err := readExcelRows(path)
	if err != nil {
		return ImportResult{Errors: []string{err.Error()}}
	}
	return importFromRows(rows, "Row", nil)
}

// ImportStockCSV imports stock units from a CSV file. A header row is required.
func ImportStockCSV(path string) ImportResult {
	records, warnings, err := readCSVRecords(path)
	if err != nil {
		return ImportResult{Errors: []string{err.Error()}, Warnings: warnings}
	}
	return importStockFromRows(records, "Line", warnings)
}

// ImportStockExcel imports stock units from the first sheet of an Excel file.
func ImportStockExcel(path string) ImportResult {
	rows, err := readExcelRows(path)
	if err != nil {
		return ImportResult{Errors: []string{err.Error()}}
	}
	return importStockFromRows(rows, "Row", nil)
}

// importFromRows is the shared demand import logic for both CSV and Excel data.
// It detects headers, maps columns, and parses each row into parts.
func importFromRows(rows [][]string, rowPrefix string, initialWarnings []string) ImportResult {
	result := ImportResult{
		Warnings: initialWarnings,
	}

	if len(rows) == 0 {
		result.Errors = append(result.Errors, "No data rows found")
		return result
	}

	// Detect columns from first row
	mapping, hasHeader := DetectColumns(rows[0])
	startRow := 0
	if hasHeader {
		startRow = 1
		result.Warnings = append(result.Warnings, "Detected header row, skipping")

		if mapping.Length == -1 {
			result.Errors = append(result.Errors, "Required columns not found in header: Length")
			return result
		}
	} else if len(rows[0]) > mapping.Length {
		// An unrecognized header has a non-numeric length column
		if _, err := parseMM(getCell(rows[0], mapping.Length)); err != nil {
			startRow = 1
			result.Warnings = append(result.Warnings, "Detected header row, skipping")
		}
	}

	for i := startRow; i < len(rows); i++ {
		row := rows[i]
		lineNum := i + 1

		if isEmptyRow(row) {
			continue
		}

		rowLabel := fmt.Sprintf("%s %d", rowPrefix, lineNum)
		profile, plate, errMsg, warning := parseDemandRow(row, mapping, rowLabel, len(result.Profiles)+len(result.Plates))

		if errMsg != "" {
			result.Errors = append(result.Errors, errMsg)
			continue
		}
		if warning != "" {
			result.Warnings = append(result.Warnings, warning)
		}

		if profile != nil {
			result.Profiles = append(result.Profiles, *profile)
		} else {
			result.Plates = append(result.Plates, *plate)
		}
	}

	return result
}

func importStockFromRows(rows [][]string, rowPrefix string, initialWarnings []string) ImportResult {
	result := ImportResult{
		Warnings: initialWarnings,
	}

	mapping, hasHeader := DetectColumns(rows[0])
	if !hasHeader {
		result.Errors = append(result.Errors, "Stock files need a header row")
		return result
	}
	missing := []string{}
	if mapping.Profile == -1 {
		missing = append(missing, "Profile")
	}
	if mapping.Grade == -1 {
		missing = append(missing, "Grade")
	}
	if mapping.Length == -1 {
		missing = append(missing, "Length")
	}
	if len(missing) > 0 {
		result.Errors = append(result.Errors, fmt.Sprintf("Required columns not found in header: %s", strings.Join(missing, ", ")))
		return result
	}

	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if isEmptyRow(row) {
			continue
		}

		rowLabel := fmt.Sprintf("%s %d", rowPrefix, i+1)
		unit, errMsg, warning := parseStockRow(row, mapping, rowLabel)
		if errMsg != "" {
			result.Errors = append(result.Errors, errMsg)
			continue
		}
		if warning != "" {
			result.Warnings = append(result.Warnings, warning)
		}

		// A quantity column on a stock row expands into identical units
		qty := 1
		if q, err := strconv.Atoi(getCell(row, mapping.Quantity)); err == nil && q > 1 {
			qty = q
		}
		for n := 0; n < qty; n++ {
			u := unit
			if n > 0 {
				u.ID = fmt.Sprintf("%s-%d", unit.ID, n+1)
			}
			result.Stock = append(result.Stock, u)
		}
	}

	return result
}
