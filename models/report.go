package models

import "time"

// Metrics are the regression fit-quality scores for one partition.
type Metrics struct {
	R2   float64
	RMSE float64
	MAE  float64
}

// TrainingRun is the outcome of one training invocation.
type TrainingRun struct {
	ID         string
	ModelName  string
	TrainRows  int
	TestRows   int
	Features   int
	Train      Metrics
	Test       Metrics
	TrainedAt  time.Time
	ModelPath  string
	SchemaPath string
}

// PredictionRecord is one served prediction.
type PredictionRecord struct {
	ID        string
	Fields    map[string]string
	Price     float64
	CreatedAt time.Time
}

// DatasetInsights summarises a cleaned dataset for the operator.
type DatasetInsights struct {
	TotalRows          int
	Columns            int
	AveragePrice       float64
	MedianPrice        float64
	MinPrice           float64
	MaxPrice           float64
	ListingsByProvince map[string]int
}
