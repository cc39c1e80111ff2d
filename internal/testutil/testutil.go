// Package testutil provides shared test fixtures for the dataset, API and
// CLI tests.
package testutil

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

// CenterCount is the number of beneficiary rows to emit for one center.
type CenterCount struct {
	Center string
	Count  int
}

// ScenarioCounts is the four-center fixture used across packages: two
// small centers and two large ones.
var ScenarioCounts = []CenterCount{
	{"A", 10},
	{"B", 12},
	{"C", 100},
	{"D", 98},
}

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// CentersCSV builds a centers table with one row per name.
func CentersCSV(names ...string) []byte {
	var buf bytes.Buffer
	buf.WriteString("Wellness Center\n")
	for _, n := range names {
		fmt.Fprintf(&buf, "%s\n", n)
	}
	return buf.Bytes()
}

// BeneficiariesCSV builds a beneficiaries table with Count rows for each
// center, rows for one center kept together.
func BeneficiariesCSV(counts ...CenterCount) []byte {
	var buf bytes.Buffer
	buf.WriteString("Wellness Center,City\n")
	for _, c := range counts {
		for i := 0; i < c.Count; i++ {
			fmt.Fprintf(&buf, "%s,City%d\n", c.Center, i%3)
		}
	}
	return buf.Bytes()
}

// ScenarioCSVs returns the centers and beneficiaries tables for
// ScenarioCounts.
func ScenarioCSVs() (centers, beneficiaries []byte) {
	names := make([]string, len(ScenarioCounts))
	for i, c := range ScenarioCounts {
		names[i] = c.Center
	}
	return CentersCSV(names...), BeneficiariesCSV(ScenarioCounts...)
}

// WriteFile writes data under t.TempDir and returns the path.
func WriteFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

// MultipartRequest builds a multipart/form-data request. files maps field
// names to file contents; each is uploaded as <field>.csv.
func MultipartRequest(t *testing.T, method, target string, fields map[string]string, files map[string][]byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("failed to write field %s: %v", k, err)
		}
	}
	for field, data := range files {
		fw, err := mw.CreateFormFile(field, field+".csv")
		if err != nil {
			t.Fatalf("failed to create form file %s: %v", field, err)
		}
		if _, err := fw.Write(data); err != nil {
			t.Fatalf("failed to write form file %s: %v", field, err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest(method, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}
