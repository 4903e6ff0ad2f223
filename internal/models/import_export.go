package models

// ImportValidationError describes a spreadsheet row that could not be imported.
type ImportValidationError struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Message string `json:"message"`
}

// ImportSummary is the outcome of a question import.
type ImportSummary struct {
	TotalRows        int                     `json:"total_rows"`
	SuccessCount     int                     `json:"success_count"`
	ErrorCount       int                     `json:"error_count"`
	CreatedQuestions []uint                  `json:"created_questions"`
	Errors           []ImportValidationError `json:"errors"`
}
