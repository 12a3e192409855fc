package apperrors

import "errors"

var (
	ErrSourceNotFound      = errors.New("source not found")
	ErrMissingJoinColumn   = errors.New("join column missing from source")
	ErrMissingImportColumn = errors.New("import column missing from source")
	ErrMissingRequired     = errors.New("required column missing from dataset")
	ErrMissingTarget       = errors.New("target column missing from dataset")
	ErrEmptyDataset        = errors.New("dataset has no rows")
	ErrModelNotTrained     = errors.New("model not trained")
	ErrInvalidTransition   = errors.New("invalid form transition")
)
