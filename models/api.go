package models

// SubmitReportRequest is the citizen submission payload. Image travels
// base64-encoded in JSON, like the mobile clients send it.
type SubmitReportRequest struct {
	Image           []byte  `json:"image" binding:"required"`
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
	LocationContext string  `json:"location_context"`
	LocationName    string  `json:"location_name"`
	UserNotes       string  `json:"user_notes"`
	Reporter        string  `json:"reporter_id" binding:"required"`
}

// UpdateStatusRequest moves a report to a new workflow status.
type UpdateStatusRequest struct {
	ID     string `json:"id" binding:"required"`
	Status string `json:"status" binding:"required"`
}

// UpdateStatusResponse reports the applied status change.
type UpdateStatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ID      string `json:"id"`
	Status  string `json:"status"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp"`
}
