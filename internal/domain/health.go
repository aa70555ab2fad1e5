package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status     string            `json:"status"` // healthy, degraded
	Components []ComponentHealth `json:"components"`
}

// ComponentHealth reports one dependency of the BFF.
type ComponentHealth struct {
	Name   string `json:"name"`
	Status string `json:"status"` // up, down, disabled
	Detail string `json:"detail,omitempty"`
}

// MetricsSummary is returned by GET /v1/metrics/summary.
type MetricsSummary struct {
	RemoteCalls        map[string]uint64  `json:"remote_calls"`
	RemoteErrors       map[string]float64 `json:"remote_errors"`
	TokenRefreshes     map[string]float64 `json:"token_refreshes"`
	SessionTransitions map[string]float64 `json:"session_transitions"`
	Uploads            map[string]float64 `json:"uploads"`
	StepFailures       map[string]float64 `json:"step_failures"`
	Period             string             `json:"period"`
}

// SuccessResponse wraps a successful single-entity response.
type SuccessResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}
