package database

import (
	"database/sql"
	"fmt"
	"time"

	"eigenimages/logging"
	"eigenimages/types"

	_ "github.com/mattn/go-sqlite3"
)

// InitDatabase initializes and returns a database connection
func InitDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Create table if it doesn't exist
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS folder_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		folder_path TEXT NOT NULL,
		folder_name TEXT,
		output_prefix TEXT NOT NULL,
		image_count INTEGER,
		original_width INTEGER,
		original_height INTEGER,
		working_width INTEGER,
		working_height INTEGER,
		component_budget INTEGER,
		selected_components INTEGER,
		explained_variance REAL,
		score_all REAL,
		score_non_negative REAL,
		csv_path TEXT,
		image_path TEXT,
		non_neg_image_path TEXT,
		status TEXT NOT NULL,
		error TEXT,
		processed_at TEXT,
		UNIQUE(folder_path, output_prefix)
	);
	CREATE INDEX IF NOT EXISTS idx_folder_path ON folder_runs(folder_path);
	CREATE INDEX IF NOT EXISTS idx_status ON folder_runs(status);`

	_, err = db.Exec(createTableSQL)
	if err != nil {
		db.Close()
		return nil, err
	}

	if err := addMissingColumns(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// Columns added after the first schema; older ledgers are migrated in place
var laterColumns = []struct {
	name string
	def  string
}{
	{"duration_ms", "INTEGER DEFAULT 0"},
}

func addMissingColumns(db *sql.DB) error {
	for _, col := range laterColumns {
		var hasColumn bool
		err := db.QueryRow("SELECT COUNT(*) FROM pragma_table_info('folder_runs') WHERE name=?", col.name).Scan(&hasColumn)
		if err != nil {
			return fmt.Errorf("error checking for %s column: %v", col.name, err)
		}
		if hasColumn {
			continue
		}

		_, err = db.Exec(fmt.Sprintf("ALTER TABLE folder_runs ADD COLUMN %s %s;", col.name, col.def))
		if err != nil {
			return fmt.Errorf("error adding %s column: %v", col.name, err)
		}
		logging.DebugLog("Added '%s' column to existing database schema", col.name)
	}
	return nil
}

// StoreFolderResult records one folder run, replacing an earlier run of the
// same folder into the same output prefix
func StoreFolderResult(db *sql.DB, r types.FolderResult) error {
	if r.ProcessedAt == "" {
		r.ProcessedAt = time.Now().Format(time.RFC3339)
	}

	stmt, err := db.Prepare(`
		INSERT OR REPLACE INTO folder_runs (
			folder_path, folder_name, output_prefix, image_count,
			original_width, original_height, working_width, working_height,
			component_budget, selected_components, explained_variance,
			score_all, score_non_negative, csv_path, image_path, non_neg_image_path,
			status, error, duration_ms, processed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("cannot prepare statement for %s: %v", r.FolderPath, err)
	}
	defer stmt.Close()

	_, err = stmt.Exec(
		r.FolderPath,
		r.FolderName,
		r.OutputPrefix,
		r.ImageCount,
		r.Original.Width,
		r.Original.Height,
		r.Working.Width,
		r.Working.Height,
		r.ComponentBudget,
		r.SelectedComponents,
		r.ExplainedVariance,
		r.Scores.All,
		r.Scores.NonNegative,
		r.CSVPath,
		r.ImagePath,
		r.NonNegImagePath,
		r.Status,
		r.Error,
		r.DurationMs,
		r.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("cannot insert run for %s: %v", r.FolderPath, err)
	}

	return nil
}

// QueryResults lists stored runs, newest first. A non-empty folderFilter
// restricts the list to folder paths containing it.
func QueryResults(db *sql.DB, folderFilter string) ([]types.FolderResult, error) {
	query := `SELECT id, folder_path, folder_name, output_prefix, image_count,
		original_width, original_height, working_width, working_height,
		component_budget, selected_components, explained_variance,
		score_all, score_non_negative, csv_path, image_path, non_neg_image_path,
		status, error, duration_ms, processed_at
		FROM folder_runs`
	var args []interface{}

	if folderFilter != "" {
		query += " WHERE folder_path LIKE ?"
		args = append(args, "%"+folderFilter+"%")
	}
	query += " ORDER BY processed_at DESC, id DESC"

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %v", err)
	}
	defer rows.Close()

	var results []types.FolderResult
	for rows.Next() {
		var r types.FolderResult
		var folderName, csvPath, imagePath, nonNegPath, errText, processedAt sql.NullString
		err := rows.Scan(
			&r.ID, &r.FolderPath, &folderName, &r.OutputPrefix, &r.ImageCount,
			&r.Original.Width, &r.Original.Height, &r.Working.Width, &r.Working.Height,
			&r.ComponentBudget, &r.SelectedComponents, &r.ExplainedVariance,
			&r.Scores.All, &r.Scores.NonNegative, &csvPath, &imagePath, &nonNegPath,
			&r.Status, &errText, &r.DurationMs, &processedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %v", err)
		}
		r.FolderName = folderName.String
		r.CSVPath = csvPath.String
		r.ImagePath = imagePath.String
		r.NonNegImagePath = nonNegPath.String
		r.Error = errText.String
		r.ProcessedAt = processedAt.String
		results = append(results, r)
	}

	return results, rows.Err()
}

// RunStats contains statistics over the run ledger
type RunStats struct {
	TotalRuns       int
	FailedRuns      int
	DistinctFolders int
}

// GetRunStats retrieves statistics about recorded runs
func GetRunStats(db *sql.DB) (*RunStats, error) {
	var stats RunStats

	err := db.QueryRow("SELECT COUNT(*) FROM folder_runs").Scan(&stats.TotalRuns)
	if err != nil {
		return nil, fmt.Errorf("failed to get total runs: %v", err)
	}

	err = db.QueryRow("SELECT COUNT(*) FROM folder_runs WHERE status = ?", types.StatusFailed).Scan(&stats.FailedRuns)
	if err != nil {
		return nil, fmt.Errorf("failed to get failed runs: %v", err)
	}

	err = db.QueryRow("SELECT COUNT(DISTINCT folder_path) FROM folder_runs").Scan(&stats.DistinctFolders)
	if err != nil {
		return nil, fmt.Errorf("failed to get distinct folders: %v", err)
	}

	return &stats, nil
}
