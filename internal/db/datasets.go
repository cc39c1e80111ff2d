package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/wellness.report/internal/dataset"
)

// ErrDatasetNotFound is returned when no dataset has the requested name.
var ErrDatasetNotFound = errors.New("dataset not found")

// DatasetInfo describes one stored dataset.
type DatasetInfo struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	CreatedAt     time.Time `json:"created_at"`
	Centers       int       `json:"centers"`
	Beneficiaries int       `json:"beneficiaries"`
}

// ImportDataset stores both tables under name in one transaction and
// returns the new dataset id. An existing dataset with the same name is
// replaced.
func (db *DB) ImportDataset(name string, centers []dataset.Center, beneficiaries []dataset.Beneficiary) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("dataset name is required")
	}

	tx, err := db.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteDatasetTx(tx, name); err != nil && !errors.Is(err, ErrDatasetNotFound) {
		return "", err
	}

	id := uuid.New().String()
	if _, err := tx.Exec(
		`INSERT INTO datasets (dataset_id, name, created_unix, center_count, beneficiary_count) VALUES (?, ?, ?, ?, ?)`,
		id, name, time.Now().Unix(), len(centers), len(beneficiaries),
	); err != nil {
		return "", fmt.Errorf("failed to insert dataset: %w", err)
	}

	centerStmt, err := tx.Prepare(`INSERT INTO centers (dataset_id, position, name, extra_json) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare center insert: %w", err)
	}
	defer centerStmt.Close()
	for i, c := range centers {
		var extra sql.NullString
		if len(c.Extra) > 0 {
			b, err := json.Marshal(c.Extra)
			if err != nil {
				return "", fmt.Errorf("failed to encode center %q: %w", c.Name, err)
			}
			extra = sql.NullString{String: string(b), Valid: true}
		}
		if _, err := centerStmt.Exec(id, i, c.Name, extra); err != nil {
			return "", fmt.Errorf("failed to insert center %q: %w", c.Name, err)
		}
	}

	benStmt, err := tx.Prepare(`INSERT INTO beneficiaries (dataset_id, position, center_name, city) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare beneficiary insert: %w", err)
	}
	defer benStmt.Close()
	for i, b := range beneficiaries {
		if _, err := benStmt.Exec(id, i, b.Center, b.City); err != nil {
			return "", fmt.Errorf("failed to insert beneficiary row %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit dataset: %w", err)
	}
	return id, nil
}

// ListDatasets returns every stored dataset, newest first.
func (db *DB) ListDatasets() ([]DatasetInfo, error) {
	rows, err := db.Query(`SELECT dataset_id, name, created_unix, center_count, beneficiary_count
		FROM datasets ORDER BY created_unix DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	defer rows.Close()

	out := []DatasetInfo{}
	for rows.Next() {
		var info DatasetInfo
		var created int64
		if err := rows.Scan(&info.ID, &info.Name, &created, &info.Centers, &info.Beneficiaries); err != nil {
			return nil, fmt.Errorf("failed to scan dataset: %w", err)
		}
		info.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, info)
	}
	return out, rows.Err()
}

func (db *DB) datasetID(name string) (string, error) {
	var id string
	err := db.QueryRow(`SELECT dataset_id FROM datasets WHERE name = ?`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %q", ErrDatasetNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up dataset %q: %w", name, err)
	}
	return id, nil
}

// LoadBeneficiaries returns the beneficiary rows of a dataset in import
// order.
func (db *DB) LoadBeneficiaries(name string) ([]dataset.Beneficiary, error) {
	id, err := db.datasetID(name)
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(`SELECT center_name, city FROM beneficiaries WHERE dataset_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load beneficiaries: %w", err)
	}
	defer rows.Close()

	out := []dataset.Beneficiary{}
	for rows.Next() {
		var b dataset.Beneficiary
		if err := rows.Scan(&b.Center, &b.City); err != nil {
			return nil, fmt.Errorf("failed to scan beneficiary: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// LoadCenters returns the center rows of a dataset in import order.
func (db *DB) LoadCenters(name string) ([]dataset.Center, error) {
	id, err := db.datasetID(name)
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(`SELECT name, extra_json FROM centers WHERE dataset_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load centers: %w", err)
	}
	defer rows.Close()

	out := []dataset.Center{}
	for rows.Next() {
		var c dataset.Center
		var extra sql.NullString
		if err := rows.Scan(&c.Name, &extra); err != nil {
			return nil, fmt.Errorf("failed to scan center: %w", err)
		}
		if extra.Valid {
			if err := json.Unmarshal([]byte(extra.String), &c.Extra); err != nil {
				return nil, fmt.Errorf("failed to decode center %q: %w", c.Name, err)
			}
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteDataset removes a dataset and its rows.
func (db *DB) DeleteDataset(name string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteDatasetTx(tx, name); err != nil {
		return err
	}
	return tx.Commit()
}

// deleteDatasetTx removes child rows explicitly; foreign_keys is a
// per-connection pragma and may be off on pooled connections.
func deleteDatasetTx(tx *sql.Tx, name string) error {
	var id string
	err := tx.QueryRow(`SELECT dataset_id FROM datasets WHERE name = ?`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %q", ErrDatasetNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("failed to look up dataset %q: %w", name, err)
	}

	for _, q := range []string{
		`DELETE FROM beneficiaries WHERE dataset_id = ?`,
		`DELETE FROM centers WHERE dataset_id = ?`,
		`DELETE FROM datasets WHERE dataset_id = ?`,
	} {
		if _, err := tx.Exec(q, id); err != nil {
			return fmt.Errorf("failed to delete dataset %q: %w", name, err)
		}
	}
	return nil
}
