package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrFatalAutomation indicates the automation session itself became unusable.
// It is the only automation error that aborts a crawl run.
type ErrFatalAutomation struct {
	Err error
}

func (e ErrFatalAutomation) Error() string {
	return fmt.Errorf("automation unusable: %w", e.Err).Error()
}

func (e ErrFatalAutomation) Unwrap() error {
	return e.Err
}

// ErrPlaceDiscoveryTimeout indicates the results list for a place never appeared.
type ErrPlaceDiscoveryTimeout struct {
	Query string
	Err   error
}

func (e ErrPlaceDiscoveryTimeout) Error() string {
	return fmt.Errorf("no results for %q: %w", e.Query, e.Err).Error()
}

func (e ErrPlaceDiscoveryTimeout) Unwrap() error {
	return e.Err
}

// ErrListingParse indicates one listing's facts could not be read.
type ErrListingParse struct {
	URL string
	Err error
}

func (e ErrListingParse) Error() string {
	return fmt.Errorf("listing %s: %w", e.URL, e.Err).Error()
}

func (e ErrListingParse) Unwrap() error {
	return e.Err
}

// ErrVerification indicates the search-engine lookup for a business failed.
type ErrVerification struct {
	Err error
}

func (e ErrVerification) Error() string {
	return fmt.Errorf("verification: %w", e.Err).Error()
}

func (e ErrVerification) Unwrap() error {
	return e.Err
}

// ErrEmailFetch indicates a business website could not be fetched.
type ErrEmailFetch struct {
	URL string
	Err error
}

func (e ErrEmailFetch) Error() string {
	return fmt.Errorf("fetch %s: %w", e.URL, e.Err).Error()
}

func (e ErrEmailFetch) Unwrap() error {
	return e.Err
}

// ErrNeighborDiscovery indicates nearby places could not be looked up.
type ErrNeighborDiscovery struct {
	Place string
	Err   error
}

func (e ErrNeighborDiscovery) Error() string {
	return fmt.Errorf("neighbors of %q: %w", e.Place, e.Err).Error()
}

func (e ErrNeighborDiscovery) Unwrap() error {
	return e.Err
}

// ErrTimeout indicates a timeout while issuing a request.
type ErrTimeout struct {
	Err error
}

func (e ErrTimeout) Error() string {
	return fmt.Errorf("timeout: %w", e.Err).Error()
}

func (e ErrTimeout) Unwrap() error {
	return e.Err
}

// ErrConnection indicates a network connectivity failure.
type ErrConnection struct {
	Err error
}

func (e ErrConnection) Error() string {
	return fmt.Errorf("connection: %w", e.Err).Error()
}

func (e ErrConnection) Unwrap() error {
	return e.Err
}

// ErrHTTPStatus indicates the target answered with an error status.
type ErrHTTPStatus struct {
	StatusCode int
	Err        error
}

func (e ErrHTTPStatus) Error() string {
	return fmt.Errorf("status %d: %w", e.StatusCode, e.Err).Error()
}

func (e ErrHTTPStatus) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err must abort the whole run.
func IsFatal(err error) bool {
	var fatal ErrFatalAutomation
	return errors.As(err, &fatal)
}

// ErrorTypeLabel maps an error to the label used for metrics and logs.
func ErrorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var fatal ErrFatalAutomation
	if errors.As(err, &fatal) {
		return "fatal"
	}
	var placeTimeout ErrPlaceDiscoveryTimeout
	if errors.As(err, &placeTimeout) {
		return "place_timeout"
	}
	var parse ErrListingParse
	if errors.As(err, &parse) {
		return "listing_parse"
	}
	var verification ErrVerification
	if errors.As(err, &verification) {
		return "verification"
	}
	var neighbors ErrNeighborDiscovery
	if errors.As(err, &neighbors) {
		return "neighbors"
	}
	var timeout ErrTimeout
	if errors.As(err, &timeout) {
		return "timeout"
	}
	var conn ErrConnection
	if errors.As(err, &conn) {
		return "connection"
	}
	var status ErrHTTPStatus
	if errors.As(err, &status) {
		switch status.StatusCode {
		case http.StatusForbidden:
			return "forbidden"
		case http.StatusNotFound:
			return "not_found"
		case http.StatusTooManyRequests:
			return "rate_limited"
		}
		return "http_status"
	}
	var fetch ErrEmailFetch
	if errors.As(err, &fetch) {
		return "email_fetch"
	}
	return "other"
}

func classifyError(err error, statusCode int) error {
	if err == nil && statusCode == 0 {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrConnection{Err: err}
	}

	if statusCode >= http.StatusBadRequest {
		wrapped := err
		if wrapped == nil {
			wrapped = fmt.Errorf("http status %d", statusCode)
		}
		return ErrHTTPStatus{StatusCode: statusCode, Err: wrapped}
	}

	return err
}

// retryable reports whether a classified fetch error is worth another attempt.
func retryable(err error) bool {
	var timeout ErrTimeout
	if errors.As(err, &timeout) {
		return true
	}
	var conn ErrConnection
	if errors.As(err, &conn) {
		return true
	}
	var status ErrHTTPStatus
	if errors.As(err, &status) {
		return status.StatusCode == http.StatusTooManyRequests || status.StatusCode >= http.StatusInternalServerError
	}
	return false
}
