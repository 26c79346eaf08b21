package gemini

import (
	"errors"
	"testing"
)

func TestStatusClass(t *testing.T) {
	tests := []struct {
		Status StatusCode
		Class  StatusClass
	}{
		{StatusInput, ClassInput},
		{StatusSensitiveInput, ClassInput},
		{StatusSuccess, ClassSuccess},
		{StatusTempRedirect, ClassRedirect},
		{StatusRedirect, ClassRedirect},
		{StatusTempError, ClassTemporaryFailure},
		{StatusSlowDown, ClassTemporaryFailure},
		{StatusMalformedRequest, ClassPermanentFailure},
		{StatusCertificateNotValid, ClassCertificate},
		// Codes outside the documented set still classify by tens digit
		{35, ClassRedirect},
		{99, StatusClass(90)},
	}

	for _, tt := range tests {
		result := tt.Status.Class()
		if result != tt.Class {
			t.Errorf("Expected the class of %d to be %d, got %d instead", tt.Status, tt.Class, result)
		}
	}
}

func TestStatusValid(t *testing.T) {
	tests := []struct {
		Status StatusCode
		Valid  bool
	}{
		{StatusInput, true},
		{StatusSuccess, true},
		{StatusRedirect, true},
		{StatusCertificateNotValid, true},
		{21, false},
		{35, false},
		{45, false},
		{63, false},
		{99, false},
		{0, false},
	}

	for _, tt := range tests {
		if tt.Status.Valid() != tt.Valid {
			t.Errorf("Expected Valid() of %d to be %v", tt.Status, tt.Valid)
		}
	}
}

func TestErrorUnwrap(t *testing.T) {
	underlying := errors.New("boom")
	err := Error{Err: underlying, Status: StatusNotFound}
	if !errors.Is(err, underlying) {
		t.Errorf("expected Error to unwrap to its underlying error")
	}
}

func TestErrorResponse(t *testing.T) {
	res := ErrorResponse(Error{Err: errors.New("nothing here"), Status: StatusNotFound})
	if res.Status != StatusNotFound {
		t.Errorf("expected status %d, got %d", StatusNotFound, res.Status)
	}

	res = ErrorResponse(errors.New("some failure"))
	if res.Status != StatusTempError {
		t.Errorf("expected status %d, got %d", StatusTempError, res.Status)
	}
	if res.Meta != "some failure" {
		t.Errorf("expected meta to carry the error text, got %q", res.Meta)
	}
}
