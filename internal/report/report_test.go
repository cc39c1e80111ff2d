package report

import (
	"bytes"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/wellness.report/internal/cluster"
	"github.com/banshee-data/wellness.report/internal/dataset"
)

func testResult() *cluster.Result {
	knee := 2
	return &cluster.Result{
		RunID: "run-1",
		Seed:  42,
		Counts: []cluster.EntityCount{
			{EntityID: "A", Count: 10},
			{EntityID: "B", Count: 12},
			{EntityID: "C", Count: 100},
			{EntityID: "D", Count: 98},
		},
		Curve: cluster.WcssCurve{
			{K: 1, WCSS: 4},
			{K: 2, WCSS: 0.002},
			{K: 3, WCSS: 0.001},
			{K: 4, WCSS: 0},
		},
		Knee:    &knee,
		ChosenK: 2,
		KSource: cluster.KSourceKnee,
		Assignments: []cluster.ClusterAssignment{
			{EntityID: "A", Label: 0},
			{EntityID: "B", Label: 0},
			{EntityID: "C", Label: 1},
			{EntityID: "D", Label: 1},
		},
		Clusters: []cluster.ClusterSummary{
			{Label: 0, Size: 2, MinCount: 10, MaxCount: 12, MeanCount: 11},
			{Label: 1, Size: 2, MinCount: 98, MaxCount: 100, MeanCount: 99},
		},
	}
}

func TestWriteHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, testResult()))

	html := buf.String()
	assert.Contains(t, html, "Elbow Method for Optimal k")
	assert.Contains(t, html, "Clustering of Wellness Centers Based on Beneficiaries")
	assert.Contains(t, html, "Cluster 0")
	assert.Contains(t, html, "Cluster 1")
	assert.Contains(t, html, "suggested k=2")
}

func TestElbowChart_NoKnee(t *testing.T) {
	res := testResult()
	res.Knee = nil

	var buf bytes.Buffer
	require.NoError(t, ElbowChart(res.Curve, nil).Render(&buf))
	assert.Contains(t, buf.String(), "no clear elbow")
	assert.NotContains(t, buf.String(), "markPoint")
}

func TestWriteElbowPNG(t *testing.T) {
	for _, knee := range []*int{testResult().Knee, nil} {
		var buf bytes.Buffer
		require.NoError(t, WriteElbowPNG(&buf, testResult().Curve, knee))

		img, err := png.Decode(&buf)
		require.NoError(t, err)
		assert.Positive(t, img.Bounds().Dx())
	}
}

func TestWriteClusterPNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteClusterPNG(&buf, testResult()))

	_, err := png.Decode(&buf)
	require.NoError(t, err)
}

func TestWriteAssignmentsCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteAssignmentsCSV(&buf, testResult()))

	want := "Wellness Center,Beneficiary Count,Cluster\n" +
		"A,10,0\n" +
		"B,12,0\n" +
		"C,100,1\n" +
		"D,98,1\n"
	assert.Equal(t, want, buf.String())
}

func TestKneeMessage(t *testing.T) {
	k := 3
	tests := []struct {
		name   string
		knee   *int
		source string
		want   string
	}{
		{"knee", &k, cluster.KSourceKnee, "Suggested optimal number of clusters: 3"},
		{"knee with requested k", &k, cluster.KSourceRequested, "Suggested optimal number of clusters: 3"},
		{"default", nil, cluster.KSourceDefault, "No clear elbow found; using the default number of clusters."},
		{"requested", nil, cluster.KSourceRequested, "No clear elbow found; using the requested number of clusters."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KneeMessage(tt.knee, tt.source))
		})
	}
}

func TestWriteSummary_RequestedWithoutKnee(t *testing.T) {
	res := testResult()
	res.Knee = nil
	res.ChosenK = 3
	res.KSource = cluster.KSourceRequested

	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, res))
	assert.Contains(t, buf.String(), "using the requested number of clusters")
	assert.NotContains(t, buf.String(), "default number")
}

func TestWriteElbowPNG_EmptyCurve(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteElbowPNG(&buf, cluster.WcssCurve{}, nil))

	_, err := png.Decode(&buf)
	require.NoError(t, err)
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, testResult()))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "Suggested optimal number of clusters: 2\n"))
	assert.Contains(t, out, "Clusters used: 2 (knee)")
	assert.Contains(t, out, "99.0")
	lines := strings.Split(out, "\n")
	var centerLines int
	for _, l := range lines {
		if strings.HasPrefix(l, "A ") || strings.HasPrefix(l, "C ") {
			centerLines++
		}
	}
	assert.Equal(t, 2, centerLines)
}

func TestWritePreview(t *testing.T) {
	centers := []dataset.Center{{Name: "Alpha"}, {Name: "Beta"}, {Name: "Gamma"}}
	beneficiaries := []dataset.Beneficiary{{Center: "Alpha", City: "Pune"}}

	var buf bytes.Buffer
	require.NoError(t, WritePreview(&buf, centers, beneficiaries, 2))

	out := buf.String()
	assert.Contains(t, out, "Centers Data (3 rows)")
	assert.Contains(t, out, "Beta")
	assert.NotContains(t, out, "Gamma")
	assert.Contains(t, out, "Pune")

	buf.Reset()
	require.NoError(t, WritePreview(&buf, centers, nil, -1))
	assert.NotContains(t, buf.String(), "Alpha")
}

func TestGenerateColors(t *testing.T) {
	assert.Nil(t, generateColors(0))

	colors := generateColors(3)
	require.Len(t, colors, 3)
	assert.NotEqual(t, colors[0], colors[1])
	assert.Equal(t, color.RGBA{R: 216, G: 38, B: 38, A: 255}, colors[0])

	hex := hexColors(3)
	assert.Equal(t, "#d82626", hex[0])
}
