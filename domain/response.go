package domain

// Response statuses
const (
	StatusSuccess = "success"
	StatusFail    = "fail"
	StatusError   = "error"
)

// Response represents the success envelope
type Response struct {
	Status  string      `json:"status"`
	Results *int        `json:"results,omitempty"`
	Token   string      `json:"token,omitempty"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// ResponseError represent the response error struct
type ResponseError struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Error   string            `json:"error,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// NewResponse wraps data into success envelope, key names the payload
func NewResponse(key string, data interface{}) Response {
	return Response{
		Status: StatusSuccess,
		Data:   map[string]interface{}{key: data},
	}
}

// NewListResponse wraps list into success envelope with results count
func NewListResponse(key string, data interface{}, results int) Response {
	r := NewResponse(key, data)
	r.Results = &results
	return r
}
