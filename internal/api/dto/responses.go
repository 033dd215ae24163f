package dto

// MarkInProcessResponse is returned by the mark-in-process endpoint.
type MarkInProcessResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
}

// AIReplyResponse is returned by the AI reply endpoint.
type AIReplyResponse struct {
	Success bool   `json:"success"`
	Reply   string `json:"reply"`
}

// FailureResponse is the error body of the async endpoints.
type FailureResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Failure builds a FailureResponse.
func Failure(message string) FailureResponse {
	return FailureResponse{Success: false, Error: message}
}
