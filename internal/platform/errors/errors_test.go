package errors

import (
	stderrs "errors"
	"net/http"
	"testing"
)

func TestWrapAndUnwrap(t *testing.T) {
	cause := stderrs.New("disk full")
	err := Wrapf(cause, ErrorCodeIO, "write snapshot %s", "holderSummary")
	e, ok := As(err)
	if !ok {
		t.Fatalf("As failed for our error")
	}
	if e.Code() != ErrorCodeIO {
		t.Fatalf("Code = %v, want IO", e.Code())
	}
	if Root(err) != cause {
		t.Fatalf("Root did not reach the cause")
	}
	if got := err.Error(); got != "write snapshot holderSummary: disk full" {
		t.Fatalf("Error() = %q", got)
	}
}

func TestCodeOf_ForeignError(t *testing.T) {
	if CodeOf(stderrs.New("plain")) != ErrorCodeUnknown {
		t.Fatalf("foreign error should map to Unknown")
	}
	if CodeOf(nil) != ErrorCodeUnknown {
		t.Fatalf("nil should map to Unknown")
	}
}

func TestIsCode(t *testing.T) {
	err := NotFoundf("no snapshot of kind %s in %s", "holderSummary", "data")
	if !IsCode(err, ErrorCodeNotFound) {
		t.Fatalf("IsCode NotFound = false")
	}
	if IsCode(err, ErrorCodeConfig) {
		t.Fatalf("IsCode Config = true for NotFound error")
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		code ErrorCode
		want int
	}{
		{ErrorCodeNotFound, http.StatusNotFound},
		{ErrorCodeInvalidArgument, http.StatusUnprocessableEntity},
		{ErrorCodeValidation, http.StatusBadRequest},
		{ErrorCodeJSON, http.StatusBadRequest},
		{ErrorCodeTooManyRequests, http.StatusTooManyRequests},
		{ErrorCodeUnavailable, http.StatusServiceUnavailable},
		{ErrorCodeUpstream, http.StatusServiceUnavailable},
		{ErrorCodeConfig, http.StatusInternalServerError},
		{ErrorCodeSerialization, http.StatusInternalServerError},
		{ErrorCodeUnknown, http.StatusInternalServerError},
		{ErrorCode(999), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := HTTPStatusCode(c.code); got != c.want {
			t.Fatalf("HTTPStatusCode(%v) = %d, want %d", c.code, got, c.want)
		}
	}
}

func TestWireFrom(t *testing.T) {
	w := WireFrom(WithField(Newf(ErrorCodeValidation, "bad threshold"), "min"))
	if w.Code != ErrorCodeValidation || w.Field != "min" || w.Message != "bad threshold" {
		t.Fatalf("WireFrom = %+v", w)
	}
	if z := WireFrom(nil); z != (Wire{}) {
		t.Fatalf("WireFrom(nil) = %+v", z)
	}
	f := WireFrom(stderrs.New("boom"))
	if f.Code != ErrorCodeUnknown || f.Message != "boom" {
		t.Fatalf("WireFrom foreign = %+v", f)
	}
}

func TestRetryable(t *testing.T) {
	if !Retryable(Unavailablef("flaky")) {
		t.Fatalf("Unavailable should be retryable")
	}
	if !Retryable(Newf(ErrorCodeTooManyRequests, "slow down")) {
		t.Fatalf("TooManyRequests should be retryable")
	}
	if Retryable(Upstreamf("404 from api")) {
		t.Fatalf("Upstream non-2xx is not retryable by contract")
	}
	if Retryable(nil) {
		t.Fatalf("nil is not retryable")
	}
}

func TestWithOp(t *testing.T) {
	err := WithOp(IOf("mkdir failed"), "snapshots.write")
	e, _ := As(err)
	if e.Op() != "snapshots.write" {
		t.Fatalf("Op = %q", e.Op())
	}
	plain := stderrs.New("x")
	if WithOp(plain, "y") != plain {
		t.Fatalf("WithOp should pass through foreign errors")
	}
}
