package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// HTTPMethod enumerates the verbs an API definition may declare.
type HTTPMethod string

const (
	MethodGet     HTTPMethod = "GET"
	MethodPost    HTTPMethod = "POST"
	MethodPut     HTTPMethod = "PUT"
	MethodPatch   HTTPMethod = "PATCH"
	MethodDelete  HTTPMethod = "DELETE"
	MethodHead    HTTPMethod = "HEAD"
	MethodOptions HTTPMethod = "OPTIONS"
)

// ErrInvalidMethod reports an HTTP method outside the enumerated set.
var ErrInvalidMethod = errors.New("domain: invalid http method")

// ParseHTTPMethod validates a raw method string.
func ParseHTTPMethod(raw string) (HTTPMethod, error) {
	switch HTTPMethod(raw) {
	case MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete, MethodHead, MethodOptions:
		return HTTPMethod(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMethod, raw)
}

// APIStatus marks the lifecycle stage of an API definition.
type APIStatus string

const (
	StatusDraft      APIStatus = "draft"
	StatusActive     APIStatus = "active"
	StatusDeprecated APIStatus = "deprecated"
)

// ErrInvalidStatus reports a status outside the enumerated set.
var ErrInvalidStatus = errors.New("domain: invalid api status")

// ParseAPIStatus validates a raw status string.
func ParseAPIStatus(raw string) (APIStatus, error) {
	switch APIStatus(raw) {
	case StatusDraft, StatusActive, StatusDeprecated:
		return APIStatus(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
}

// API is a stored request definition. Params, body, headers and
// authorization are opaque documents; the scripts are uninterpreted
// strings carried for clients that execute them.
type API struct {
	ID                 string
	ProjectID          string
	Name               string
	Description        string
	Endpoint           string
	Method             HTTPMethod
	Params             json.RawMessage
	Body               json.RawMessage
	Headers            json.RawMessage
	Authorization      json.RawMessage
	PreRequestScript   string
	PostResponseScript string
	Tags               []string
	Versions           []string
	Order              int
	Status             APIStatus
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
