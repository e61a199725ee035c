package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestTaxonomyConstructors(t *testing.T) {
	cases := []struct {
		name       string
		err        *Error
		wantStatus int
		wantCode   string
	}{
		{name: "not found", err: NotFound("product %s", "p1"), wantStatus: http.StatusNotFound, wantCode: CodeNotFound},
		{name: "forbidden", err: Forbidden("system rows are immutable"), wantStatus: http.StatusForbidden, wantCode: CodeForbidden},
		{name: "conflict", err: Conflict("sku taken"), wantStatus: http.StatusConflict, wantCode: CodeConflict},
		{name: "invalid state", err: InvalidState("request is COMPLETED"), wantStatus: http.StatusConflict, wantCode: CodeInvalidState},
		{name: "limit exceeded", err: LimitExceeded("re-invite cap reached"), wantStatus: http.StatusUnprocessableEntity, wantCode: CodeLimitExceeded},
		{name: "validation", err: Validation("percentage out of range"), wantStatus: http.StatusBadRequest, wantCode: CodeValidation},
		{name: "unauthorized", err: Unauthorized("token expired"), wantStatus: http.StatusUnauthorized, wantCode: CodeUnauthorized},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if tc.err.Status != tc.wantStatus {
				t.Fatalf("status: got=%d want=%d", tc.err.Status, tc.wantStatus)
			}
			if tc.err.Code != tc.wantCode {
				t.Fatalf("code: got=%q want=%q", tc.err.Code, tc.wantCode)
			}
		})
	}
}

func TestFromUnwrapsChain(t *testing.T) {
	base := NotFound("connection not found")
	wrapped := fmt.Errorf("respond to invitation: %w", base)

	got := From(wrapped)
	if got.Status != http.StatusNotFound || got.Code != CodeNotFound {
		t.Fatalf("From should surface the chained apierr, got status=%d code=%q", got.Status, got.Code)
	}

	plain := From(errors.New("boom"))
	if plain.Status != http.StatusInternalServerError || plain.Code != CodeInternal {
		t.Fatalf("plain errors should become internal, got status=%d code=%q", plain.Status, plain.Code)
	}

	if From(nil) != nil {
		t.Fatalf("From(nil) should be nil")
	}
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", Conflict("duplicate name"))
	if !IsCode(err, CodeConflict) {
		t.Fatalf("IsCode should match through wrapping")
	}
	if IsCode(err, CodeNotFound) {
		t.Fatalf("IsCode should not match a different code")
	}
	if IsCode(errors.New("plain"), CodeConflict) {
		t.Fatalf("IsCode on a plain error should be false")
	}
}
