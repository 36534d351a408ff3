package apiclient

// Envelope is the backend success body: { data, message, count? }
type Envelope[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
	Count   *int   `json:"count,omitempty"`
}

// Total returns count when the backend sent one, otherwise fallback
func (e Envelope[T]) Total(fallback int) int {
	if e.Count == nil {
		return fallback
	}
	return *e.Count
}
