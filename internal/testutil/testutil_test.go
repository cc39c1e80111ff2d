package testutil

import (
	"net/http"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCentersCSV(t *testing.T) {
	assert.Equal(t, "Wellness Center\nA\nB\n", string(CentersCSV("A", "B")))
	assert.Equal(t, "Wellness Center\n", string(CentersCSV()))
}

func TestBeneficiariesCSV(t *testing.T) {
	out := string(BeneficiariesCSV(CenterCount{"A", 2}, CenterCount{"B", 1}))
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Wellness Center,City", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "A,"))
	assert.True(t, strings.HasPrefix(lines[3], "B,"))
}

func TestScenarioCSVs(t *testing.T) {
	centers, beneficiaries := ScenarioCSVs()
	assert.Equal(t, 5, strings.Count(string(centers), "\n"))
	assert.Equal(t, 1+10+12+100+98, strings.Count(string(beneficiaries), "\n"))
}

func TestWriteFile(t *testing.T) {
	path := WriteFile(t, "x.csv", []byte("hello"))
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
}

func TestMultipartRequest(t *testing.T) {
	req := MultipartRequest(t, http.MethodPost, "/upload",
		map[string]string{"k": "3"},
		map[string][]byte{"centers": []byte("Wellness Center\nA\n")})

	require.NoError(t, req.ParseMultipartForm(1<<20))
	assert.Equal(t, "3", req.FormValue("k"))

	f, hdr, err := req.FormFile("centers")
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, "centers.csv", hdr.Filename)
}

func TestAssertStatusCode(t *testing.T) {
	AssertStatusCode(t, http.StatusOK, http.StatusOK)
}
