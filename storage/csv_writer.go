package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"immo-estimator/apperrors"
	"immo-estimator/models"
)

// missingTokens are the raw CSV values read as a missing cell.
var missingTokens = map[string]struct{}{
	"":     {},
	"NA":   {},
	"N/A":  {},
	"NaN":  {},
	"nan":  {},
	"null": {},
	"NULL": {},
	"None": {},
}

// IsMissingToken reports whether a raw CSV value denotes a missing cell.
func IsMissingToken(s string) bool {
	_, ok := missingTokens[s]
	return ok
}

// ReadCSV loads a headed CSV file into a Dataset. A file that does not
// exist yields apperrors.ErrSourceNotFound.
func ReadCSV(path string) (*models.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("csv: open %q: %w", path, apperrors.ErrSourceNotFound)
		}
		return nil, fmt.Errorf("csv: open %q: %w", path, err)
	}
	defer f.Close()

	return DecodeCSV(f)
}

// DecodeCSV reads a headed CSV stream into a Dataset.
func DecodeCSV(r io.Reader) (*models.Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return models.NewDataset(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("csv: read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	ds := models.NewDataset(header)
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: read line %d: %w", line, err)
		}

		row := make([]models.Cell, len(header))
		for i := range header {
			if i >= len(rec) || IsMissingToken(rec[i]) {
				continue
			}
			row[i] = models.Str(rec[i])
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds, nil
}

// WriteCSV writes the Dataset to path, creating intermediate directories.
// Missing cells are written as empty fields.
func WriteCSV(path string, ds *models.Dataset) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("csv: create file %q: %w", path, err)
	}

	if err := EncodeCSV(f, ds); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// EncodeCSV writes the Dataset as CSV to w.
func EncodeCSV(w io.Writer, ds *models.Dataset) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(ds.Columns); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}

	record := make([]string, len(ds.Columns))
	for _, row := range ds.Rows {
		for i, c := range row {
			record[i] = c.Value
			if c.IsNull() {
				record[i] = ""
			}
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
