package transport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Error is a structured service error produced by either transport.
// Exactly one of StatusCode / GRPCCode is meaningful depending on origin.
type Error struct {
	StatusCode int
	GRPCCode   codes.Code
	Reason     string
	Message    string

	// RetryAfter carries a server-suggested pause (Retry-After header or
	// gRPC RetryInfo detail). Zero when the server gave none.
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("service error: http %d (%s): %s", e.StatusCode, e.Reason, e.Message)
	}
	return fmt.Sprintf("service error: grpc %s (%s): %s", e.GRPCCode, e.Reason, e.Message)
}

// errorBody matches the JSON API error envelope.
type errorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason  string `json:"reason"`
			Message string `json:"message"`
		} `json:"errors"`
	} `json:"error"`
}

// FromHTTP builds an Error from a non-2xx HTTP response.
func FromHTTP(statusCode int, header http.Header, body []byte) *Error {
	e := &Error{StatusCode: statusCode, Message: http.StatusText(statusCode)}

	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Code != 0 {
		e.Message = parsed.Error.Message
		if len(parsed.Error.Errors) > 0 {
			e.Reason = parsed.Error.Errors[0].Reason
		}
	}

	if ra := header.Get("Retry-After"); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
			e.RetryAfter = time.Duration(secs) * time.Second
		}
	}
	return e
}

// FromStatus builds an Error from a gRPC call error. Returns the input
// unchanged if it is not a gRPC status error.
func FromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	e := &Error{GRPCCode: st.Code(), Message: st.Message()}
	for _, d := range st.Details() {
		switch detail := d.(type) {
		case *errdetails.RetryInfo:
			e.RetryAfter = detail.GetRetryDelay().AsDuration()
		case *errdetails.ErrorInfo:
			e.Reason = detail.GetReason()
		}
	}
	return e
}

// IsTransient reports whether this error, on its own evidence, is worth
// retrying. The retry package's predicate consults this first and then
// falls back to network-level checks.
func (e *Error) IsTransient() bool {
	switch e.StatusCode {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	switch e.GRPCCode {
	case codes.Unavailable, codes.ResourceExhausted, codes.Internal, codes.DeadlineExceeded:
		return true
	}
	switch e.Reason {
	case "rateLimitExceeded", "backendError", "internalError", "badGateway":
		return true
	}
	return false
}

// IsNotFound reports a missing bucket or object.
func (e *Error) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound || e.GRPCCode == codes.NotFound
}

// IsPreconditionFailed reports a generation/metageneration/etag mismatch.
func (e *Error) IsPreconditionFailed() bool {
	return e.StatusCode == http.StatusPreconditionFailed || e.GRPCCode == codes.FailedPrecondition
}
