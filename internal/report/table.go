package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/gocarina/gocsv"

	"github.com/banshee-data/wellness.report/internal/cluster"
	"github.com/banshee-data/wellness.report/internal/dataset"
)

// AssignmentRow is one line of the assignments export.
type AssignmentRow struct {
	Center           string `csv:"Wellness Center"`
	BeneficiaryCount int    `csv:"Beneficiary Count"`
	Cluster          int    `csv:"Cluster"`
}

// AssignmentRows joins counts and labels in center order.
func AssignmentRows(res *cluster.Result) []AssignmentRow {
	labels := make(map[string]int, len(res.Assignments))
	for _, a := range res.Assignments {
		labels[a.EntityID] = a.Label
	}
	rows := make([]AssignmentRow, len(res.Counts))
	for i, c := range res.Counts {
		rows[i] = AssignmentRow{Center: c.EntityID, BeneficiaryCount: c.Count, Cluster: labels[c.EntityID]}
	}
	return rows
}

// WriteAssignmentsCSV writes one row per center with its count and cluster.
func WriteAssignmentsCSV(w io.Writer, res *cluster.Result) error {
	rows := AssignmentRows(res)
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("failed to write assignments: %w", err)
	}
	return nil
}

// KneeMessage is the advisory line shown next to the elbow chart. source
// is the Result's KSource, so the fallback names where k came from.
func KneeMessage(knee *int, source string) string {
	switch {
	case knee != nil:
		return fmt.Sprintf("Suggested optimal number of clusters: %d", *knee)
	case source == cluster.KSourceRequested:
		return "No clear elbow found; using the requested number of clusters."
	default:
		return "No clear elbow found; using the default number of clusters."
	}
}

// WriteSummary writes a plain-text report: the knee advice, the WCSS curve,
// per-cluster statistics and the assignment table.
func WriteSummary(w io.Writer, res *cluster.Result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, KneeMessage(res.Knee, res.KSource))
	fmt.Fprintf(tw, "Clusters used: %d (%s)\n\n", res.ChosenK, res.KSource)

	fmt.Fprintln(tw, "k\tWCSS")
	for _, p := range res.Curve {
		fmt.Fprintf(tw, "%d\t%.4f\n", p.K, p.WCSS)
	}
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "Cluster\tCenters\tMin\tMax\tMean")
	for _, c := range res.Clusters {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%.1f\n", c.Label, c.Size, c.MinCount, c.MaxCount, c.MeanCount)
	}
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "Wellness Center\tBeneficiary Count\tCluster")
	for _, r := range AssignmentRows(res) {
		fmt.Fprintf(tw, "%s\t%d\t%d\n", r.Center, r.BeneficiaryCount, r.Cluster)
	}
	return tw.Flush()
}

// WritePreview writes the first n rows of each dataset.
func WritePreview(w io.Writer, centers []dataset.Center, beneficiaries []dataset.Beneficiary, n int) error {
	n = max(n, 0)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "Centers Data (%d rows)\n", len(centers))
	fmt.Fprintln(tw, dataset.ColumnCenter)
	for _, c := range centers[:min(n, len(centers))] {
		fmt.Fprintln(tw, c.Name)
	}
	fmt.Fprintln(tw)

	fmt.Fprintf(tw, "Beneficiaries Data (%d rows)\n", len(beneficiaries))
	fmt.Fprintf(tw, "%s\t%s\n", dataset.ColumnCenter, dataset.ColumnCity)
	for _, b := range beneficiaries[:min(n, len(beneficiaries))] {
		fmt.Fprintf(tw, "%s\t%s\n", b.Center, b.City)
	}
	return tw.Flush()
}
