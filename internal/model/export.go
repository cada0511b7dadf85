package model

import "encoding/json"

// GridExport is the per-evaluation detailed grid read by CSV exporters.
type GridExport struct {
	EvaluationID string       `json:"evaluation_id"`
	Name         string       `json:"name"`
	Subject      string       `json:"subject"`
	Group        string       `json:"group"`
	Date         string       `json:"date"`
	MaxPoints    float64      `json:"max_points"`
	Columns      []GridColumn `json:"columns"`
	Rows         []GridRow    `json:"rows"`
}

// GridColumn describes one leaf rubric node.
type GridColumn struct {
	ID        string  `json:"id"`
	Label     string  `json:"label"`
	MaxPoints float64 `json:"max_points"`
}

// GridRow holds one student's line. Nil values mean ungraded.
type GridRow struct {
	StudentID string     `json:"student_id"`
	LastName  string     `json:"last_name"`
	FirstName string     `json:"first_name"`
	Values    []*float64 `json:"values"`
	Total     *float64   `json:"total"`
	OutOf20   *float64   `json:"out_of_20"`
	Comments  string     `json:"comments"`
}

// Document is the whole persisted state: every collection and singleton.
type Document struct {
	Collections map[string][]json.RawMessage `json:"collections"`
	Singletons  map[string]json.RawMessage   `json:"singletons"`
}
