package generator

import "fmt"

// ConfigError means the generator cannot run at all, typically a missing API key.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "generator not configured: " + e.Reason
}

// UpstreamError is a transport failure or a non-2xx answer from the completion API.
type UpstreamError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("openai http %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("openai request failed: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// FormatError means the reply could not be read as a list of cards.
type FormatError struct {
	Raw string
	Err error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid response format from openai: %v", e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }
