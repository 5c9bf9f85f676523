package http

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse is returned by health endpoints
type StatusResponse struct {
	Status  string `json:"status"`
	Time    string `json:"time,omitempty"`
	Backend string `json:"backend,omitempty"`
	Reason  string `json:"reason,omitempty"`
}
