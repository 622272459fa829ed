package scanner

import (
	"database/sql"
	"time"

	"eigenimages/database"
	"eigenimages/logging"
	"eigenimages/pipeline"
	"eigenimages/types"
)

// recordRun stores the outcome of one folder run in the run ledger. A
// ledger failure is logged and does not fail the folder.
func recordRun(db *sql.DB, opts pipeline.Options, res *pipeline.Result, runErr error, elapsed time.Duration) {
	if db == nil {
		return
	}

	var record types.FolderResult
	if runErr != nil {
		record = pipeline.FailedRecord(opts, runErr, elapsed)
	} else {
		record = res.Record(opts.OutputPrefix)
	}

	if err := database.StoreFolderResult(db, record); err != nil {
		logging.LogWarning("Cannot record run for %s: %v", opts.Folder, err)
	}
}
