package export

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/brettboylen/reddit-export/models"
)

// sheetName is the single worksheet the table is written to.
const sheetName = "Sheet1"

// header matches the unified row schema, posts before comments.
var header = []interface{}{
	"PLATFORM", "ENTITY", "DATE", "TYPE", "ID", "DESCRIPTION", "PARENT_DESCRIPTION",
}

// Writer writes the formatted record table to an xlsx workbook.
type Writer struct {
	dir string
	log *logrus.Logger
}

// NewWriter creates a writer that saves workbooks into dir.
func NewWriter(dir string, log *logrus.Logger) *Writer {
	if dir == "" {
		dir = "."
	}
	return &Writer{
		dir: dir,
		log: log,
	}
}

// FileName builds the output file name for one run:
// {entity}_cleaned_{YYYYMMDD}_{YYYYMMDD}.xlsx
func FileName(entity string, start, end time.Time) string {
	return fmt.Sprintf("%s_cleaned_%s_%s.xlsx",
		entity, start.Format("20060102"), end.Format("20060102"))
}

// Write saves the records as one worksheet, header row first, one row
// per record in the order given, and returns the written file path.
func (w *Writer) Write(entity string, start, end time.Time, records []models.Record) (string, error) {
	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetRow(sheetName, "A1", &header); err != nil {
		return "", fmt.Errorf("failed to write header row: %w", err)
	}

	for i, record := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return "", fmt.Errorf("failed to compute cell for row %d: %w", i+2, err)
		}
		row := []interface{}{
			record.Platform,
			record.Entity,
			record.Date,
			record.Type,
			record.ID,
			record.Description,
			record.ParentDescription,
		}
		if err := file.SetSheetRow(sheetName, cell, &row); err != nil {
			return "", fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	path := filepath.Join(w.dir, FileName(entity, start, end))
	if err := file.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save workbook: %w", err)
	}

	w.log.WithFields(logrus.Fields{
		"file": path,
		"rows": len(records),
	}).Info("Cleaned table saved")

	return path, nil
}
