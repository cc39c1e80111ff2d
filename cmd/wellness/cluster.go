package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/banshee-data/wellness.report/internal/cluster"
	"github.com/banshee-data/wellness.report/internal/dataset"
	"github.com/banshee-data/wellness.report/internal/db"
	"github.com/banshee-data/wellness.report/internal/report"
)

func runCluster(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("cluster", flag.ContinueOnError)
	centersPath := fs.String("centers", "", "Centers CSV file")
	beneficiariesPath := fs.String("beneficiaries", "", "Beneficiaries CSV file")
	dbPath := fs.String("db", "", "Dataset database (with -dataset)")
	datasetName := fs.String("dataset", "", "Stored dataset to cluster instead of CSV files")
	k := fs.Int("k", 0, "Number of clusters (0 = suggested by the elbow method)")
	configPath := fs.String("config", "", "Clustering config JSON file")
	htmlPath := fs.String("html", "", "Write interactive charts to this HTML file")
	pngPath := fs.String("png", "", "Write the elbow plot to this PNG file")
	clustersPNGPath := fs.String("clusters-png", "", "Write the cluster scatter to this PNG file")
	csvPath := fs.String("csv", "", "Write center assignments to this CSV file")
	preview := fs.Int("preview", 0, "Print the first N rows of each dataset")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *k < 0 {
		return fmt.Errorf("-k must not be negative")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	var (
		centers       []dataset.Center
		beneficiaries []dataset.Beneficiary
	)
	switch {
	case *datasetName != "":
		if *dbPath == "" {
			return errors.New("-dataset requires -db")
		}
		centers, beneficiaries, err = loadStored(*dbPath, *datasetName)
	case *centersPath != "" && *beneficiariesPath != "":
		centers, beneficiaries, err = loadFiles(*centersPath, *beneficiariesPath)
	default:
		fs.Usage()
		return errors.New("either -centers and -beneficiaries or -db and -dataset are required")
	}
	if err != nil {
		return err
	}

	if *preview > 0 {
		if err := report.WritePreview(stdout, centers, beneficiaries, *preview); err != nil {
			return err
		}
		fmt.Fprintln(stdout)
	}

	records := dataset.Records(beneficiaries)
	requested := cfg.ClampToSlider(*k, len(cluster.Aggregate(records)))
	if requested != *k {
		log.Printf("clamped -k %d to %d", *k, requested)
	}

	pipeline := cluster.NewPipeline(cluster.PipelineParamsFromConfig(cfg))
	res, err := pipeline.Run(records, requested)
	if err != nil {
		return err
	}
	if err := report.WriteSummary(stdout, res); err != nil {
		return err
	}

	outputs := []struct {
		path  string
		write func(io.Writer) error
	}{
		{*htmlPath, func(w io.Writer) error { return report.WriteHTML(w, res) }},
		{*pngPath, func(w io.Writer) error { return report.WriteElbowPNG(w, res.Curve, res.Knee) }},
		{*clustersPNGPath, func(w io.Writer) error { return report.WriteClusterPNG(w, res) }},
		{*csvPath, func(w io.Writer) error { return report.WriteAssignmentsCSV(w, res) }},
	}
	for _, out := range outputs {
		if out.path == "" {
			continue
		}
		if err := writeOutput(out.path, out.write); err != nil {
			return err
		}
		log.Printf("wrote %s", out.path)
	}
	return nil
}

func runImport(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	dbPath := fs.String("db", "wellness.db", "Dataset database")
	name := fs.String("name", "", "Dataset name (required)")
	centersPath := fs.String("centers", "", "Centers CSV file (required)")
	beneficiariesPath := fs.String("beneficiaries", "", "Beneficiaries CSV file (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" || *centersPath == "" || *beneficiariesPath == "" {
		fs.Usage()
		return errors.New("-name, -centers and -beneficiaries are required")
	}

	centers, beneficiaries, err := loadFiles(*centersPath, *beneficiariesPath)
	if err != nil {
		return err
	}

	store, err := db.NewDB(*dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	id, err := store.ImportDataset(*name, centers, beneficiaries)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "imported %q as %s: %d centers, %d beneficiaries\n", *name, id, len(centers), len(beneficiaries))
	return nil
}

func loadFiles(centersPath, beneficiariesPath string) ([]dataset.Center, []dataset.Beneficiary, error) {
	centersCSV, err := os.ReadFile(centersPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read centers: %w", err)
	}
	beneficiariesCSV, err := os.ReadFile(beneficiariesPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read beneficiaries: %w", err)
	}

	loader, err := dataset.NewLoader(1)
	if err != nil {
		return nil, nil, err
	}
	ds, err := loader.Load(centersCSV, beneficiariesCSV)
	if err != nil {
		return nil, nil, err
	}
	return ds.Centers, ds.Beneficiaries, nil
}

func loadStored(dbPath, name string) ([]dataset.Center, []dataset.Beneficiary, error) {
	store, err := db.NewDB(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	centers, err := store.LoadCenters(name)
	if err != nil {
		return nil, nil, err
	}
	beneficiaries, err := store.LoadBeneficiaries(name)
	if err != nil {
		return nil, nil, err
	}
	return centers, beneficiaries, nil
}

func writeOutput(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
