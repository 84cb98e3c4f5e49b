package fault

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestClassification(t *testing.T) {
	conflict := Conflict("slot %s already taken", "09:00")
	if !IsConflict(conflict) {
		t.Error("expected conflict classification")
	}
	if IsNotFound(conflict) || IsInvalid(conflict) {
		t.Error("conflict should not match other classes")
	}
	if conflict.Error() != "slot 09:00 already taken" {
		t.Errorf("unexpected message: %s", conflict.Error())
	}
}

func TestClassSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("create delivery: %w", NotFound("occurrence %s", "abc"))
	if !IsNotFound(err) {
		t.Error("classification lost through wrapping")
	}
	if HTTPStatus(err) != http.StatusNotFound {
		t.Errorf("expected 404, got %d", HTTPStatus(err))
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{Conflict("dup"), http.StatusConflict},
		{NotFound("gone"), http.StatusNotFound},
		{Invalid("bad"), http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := HTTPStatus(tc.err); got != tc.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestHTTPHidesInternalDetail(t *testing.T) {
	he := HTTP(errors.New("pq: connection refused"))
	if he.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", he.Code)
	}
	if he.Message == "pq: connection refused" {
		t.Error("internal error detail must not leak to the client")
	}
}
