package report

// ParamInfo describes one tunable parameter of a report.
type ParamInfo struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // "number", "string"
	Description string `json:"description"`
	Default     string `json:"default,omitempty"`
}

// Info describes a report. Exposed via GET /reports.
type Info struct {
	Name        string      `json:"name"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Params      []ParamInfo `json:"params,omitempty"`
}
