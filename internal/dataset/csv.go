// Package dataset reads the centers and beneficiaries tables that feed the
// clustering pipeline.
package dataset

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/banshee-data/wellness.report/internal/cluster"
)

// Dataset names used in error messages.
const (
	CentersDataset       = "Centers Data"
	BeneficiariesDataset = "Beneficiaries Data"
)

// Canonical column names.
const (
	ColumnCenter = "Wellness Center"
	ColumnCity   = "City"
)

// centerAliases lists the accepted spellings of the center column, in
// priority order.
var centerAliases = []string{ColumnCenter, "wellnessCentreName", "WellnessCentreName", "Center Name"}

// Required columns per dataset.
var (
	centerColumns      = []string{ColumnCenter}
	beneficiaryColumns = []string{ColumnCenter, ColumnCity}
)

// ErrInvalidDataset matches every validation error in this package.
var ErrInvalidDataset = errors.New("invalid dataset")

// MissingColumnsError reports required columns absent from a dataset.
type MissingColumnsError struct {
	Dataset string
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing required columns in %s: %s", e.Dataset, strings.Join(e.Missing, ", "))
}

func (e *MissingColumnsError) Is(target error) bool { return target == ErrInvalidDataset }

// EmptyDatasetError reports a dataset without data rows.
type EmptyDatasetError struct {
	Dataset string
}

func (e *EmptyDatasetError) Error() string {
	return fmt.Sprintf("%s has no rows", e.Dataset)
}

func (e *EmptyDatasetError) Is(target error) bool { return target == ErrInvalidDataset }

// DuplicateColumnsError reports headers that collide once whitespace is
// trimmed, such as "City" and " City".
type DuplicateColumnsError struct {
	Dataset    string
	Duplicates []string
}

func (e *DuplicateColumnsError) Error() string {
	return fmt.Sprintf("duplicate columns in %s: %s", e.Dataset, strings.Join(e.Duplicates, ", "))
}

func (e *DuplicateColumnsError) Is(target error) bool { return target == ErrInvalidDataset }

// RowError reports a bad value in a data row. Row counts from 1 for the
// first row after the header.
type RowError struct {
	Dataset string
	Row     int
	Reason  string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s row %d: %s", e.Dataset, e.Row, e.Reason)
}

func (e *RowError) Is(target error) bool { return target == ErrInvalidDataset }

// Center is one row of the centers table.
type Center struct {
	Name string `json:"name" csv:"Wellness Center"`
	// Columns other than the center name, keyed by trimmed header.
	Extra map[string]string `json:"extra,omitempty" csv:"-"`
}

// Beneficiary is one row of the beneficiaries table.
type Beneficiary struct {
	Center string `json:"center" csv:"Wellness Center"`
	City   string `json:"city" csv:"City"`
}

// ParseCenters reads a centers CSV. Headers are trimmed and any accepted
// spelling of the center column is renamed to ColumnCenter.
func ParseCenters(r io.Reader) ([]Center, error) {
	rows, err := readRows(r, CentersDataset, centerColumns)
	if err != nil {
		return nil, err
	}

	centers := make([]Center, 0, len(rows))
	for _, row := range rows {
		c := Center{Name: strings.TrimSpace(row[ColumnCenter])}
		for k, v := range row {
			if k == ColumnCenter {
				continue
			}
			if c.Extra == nil {
				c.Extra = make(map[string]string)
			}
			c.Extra[k] = v
		}
		centers = append(centers, c)
	}
	return centers, nil
}

// ParseBeneficiaries reads a beneficiaries CSV. Every row must name a
// center.
func ParseBeneficiaries(r io.Reader) ([]Beneficiary, error) {
	rows, err := readRows(r, BeneficiariesDataset, beneficiaryColumns)
	if err != nil {
		return nil, err
	}

	out := make([]Beneficiary, 0, len(rows))
	for i, row := range rows {
		b := Beneficiary{
			Center: strings.TrimSpace(row[ColumnCenter]),
			City:   strings.TrimSpace(row[ColumnCity]),
		}
		if b.Center == "" {
			return nil, &RowError{Dataset: BeneficiariesDataset, Row: i + 1, Reason: "blank " + ColumnCenter}
		}
		out = append(out, b)
	}
	return out, nil
}

// Records reduces beneficiaries to clustering records keyed by center.
func Records(beneficiaries []Beneficiary) []cluster.Record {
	out := make([]cluster.Record, len(beneficiaries))
	for i, b := range beneficiaries {
		out[i] = cluster.Record{EntityID: b.Center}
	}
	return out
}

// readRows parses CSV into header-keyed rows, normalizes headers and checks
// the required columns.
func readRows(r io.Reader, name string, required []string) ([]map[string]string, error) {
	raw, err := gocsv.CSVToMaps(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	if len(raw) == 0 {
		return nil, &EmptyDatasetError{Dataset: name}
	}

	rename, duplicates := headerMapping(raw[0])
	if len(duplicates) > 0 {
		return nil, &DuplicateColumnsError{Dataset: name, Duplicates: duplicates}
	}
	rows := make([]map[string]string, len(raw))
	for i, row := range raw {
		out := make(map[string]string, len(row))
		for k, v := range row {
			out[rename[k]] = v
		}
		rows[i] = out
	}

	var missing []string
	for _, col := range required {
		if _, ok := rows[0][col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Dataset: name, Missing: missing}
	}
	return rows, nil
}

// headerMapping maps raw headers to trimmed ones and renames the first
// center alias found, in priority order, to ColumnCenter. Trimmed names
// shared by more than one raw header are returned, sorted, as duplicates.
func headerMapping(row map[string]string) (rename map[string]string, duplicates []string) {
	rename = make(map[string]string, len(row))
	seen := make(map[string]int, len(row))
	for h := range row {
		trimmed := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		rename[h] = trimmed
		seen[trimmed]++
	}
	for name, n := range seen {
		if n > 1 {
			duplicates = append(duplicates, name)
		}
	}
	if len(duplicates) > 0 {
		sort.Strings(duplicates)
		return rename, duplicates
	}

	headers := make([]string, 0, len(rename))
	for h := range rename {
		headers = append(headers, h)
	}
	sort.Strings(headers)

	for _, alias := range centerAliases {
		for _, h := range headers {
			if rename[h] == alias {
				rename[h] = ColumnCenter
				return rename, nil
			}
		}
	}
	return rename, nil
}

// WriteBeneficiariesCSV writes beneficiaries with canonical headers.
func WriteBeneficiariesCSV(w io.Writer, beneficiaries []Beneficiary) error {
	if err := gocsv.Marshal(beneficiaries, w); err != nil {
		return fmt.Errorf("failed to write beneficiaries: %w", err)
	}
	return nil
}

// BeneficiariesCSV returns beneficiaries as CSV bytes.
func BeneficiariesCSV(beneficiaries []Beneficiary) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteBeneficiariesCSV(&buf, beneficiaries); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
