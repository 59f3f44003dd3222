package model

import "time"

// AnalysisResult holds the computed statistics for one file. There is at most
// one row per file; re-running an analysis overwrites it.
type AnalysisResult struct {
	ID         int64           `db:"id" json:"id"`
	FileID     int64           `db:"file_id" json:"file_id"`
	Metadata   AnalysisMeta    `db:"metadata" json:"metadata"`
	Results    AnalysisColumns `db:"results" json:"results"`
	ComputedAt time.Time       `db:"computed_at" json:"computed_at"`
}

// AnalysisMeta describes the dataset's overall shape.
type AnalysisMeta struct {
	Columns     []string          `json:"columns"`
	RowCount    int               `json:"row_count"`
	ColumnCount int               `json:"column_count"`
	DTypes      map[string]string `json:"dtypes"`
}

// AnalysisColumns holds the per-column statistics.
type AnalysisColumns struct {
	MissingValues     map[string]int           `json:"missing_values"`
	UniqueValues      map[string]int           `json:"unique_values"`
	DataTypes         map[string]string        `json:"data_types"`
	SummaryStatistics map[string]NumericColumn `json:"summary_statistics"`
}

// NumericColumn is the summary of a numeric column.
type NumericColumn struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Q25    float64 `json:"q25"`
	Q75    float64 `json:"q75"`
}
