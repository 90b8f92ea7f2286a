// Package response defines the JSON envelope every endpoint answers with.
package response

// Response is the envelope: status is "success" or "error", status_code
// repeats the HTTP status, and exactly one of data or error is set.
type Response struct {
	Status     string      `json:"status"`
	StatusCode int         `json:"status_code"`
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
}

func Success(statusCode int, data interface{}) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
	}
}

func Error(statusCode int, err string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      err,
	}
}

// Page is the data of a list response: the items under key, plus the total
// row count and the page that was served.
func Page(key string, items interface{}, total int64, page, limit int) map[string]interface{} {
	return map[string]interface{}{
		key:     items,
		"total": total,
		"page":  page,
		"limit": limit,
	}
}
