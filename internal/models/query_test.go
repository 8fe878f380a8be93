package models

import (
	"errors"
	"testing"
)

func TestSearchQuery_Validate(t *testing.T) {
	q := &SearchQuery{Query: "storm at sea", Limit: 5}
	if err := q.Validate(100); err != nil {
		t.Fatal(err)
	}
	if q.Limit != 5 {
		t.Errorf("valid limit changed: got %d", q.Limit)
	}

	q = &SearchQuery{Query: "storm at sea", Limit: 500}
	if err := q.Validate(100); err != nil {
		t.Fatal(err)
	}
	if q.Limit != 100 {
		t.Errorf("expected capped limit 100, got %d", q.Limit)
	}
}

func TestSearchQuery_ValidateEmpty(t *testing.T) {
	q := &SearchQuery{Limit: 5}
	err := q.Validate(100)
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSearchQuery_ValidateNonPositiveLimit(t *testing.T) {
	// Zero is not "use the default" here: defaulting is the transport
	// boundary's job, and a zero reaching validation is rejected.
	for _, limit := range []int{0, -1} {
		q := &SearchQuery{Query: "x", Limit: limit}
		err := q.Validate(100)
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("limit %d: expected ErrInvalidInput, got %v", limit, err)
		}
	}
}

func TestFilter_Empty(t *testing.T) {
	var f *Filter
	if !f.Empty() {
		t.Error("nil filter should be empty")
	}
	if !(&Filter{}).Empty() {
		t.Error("zero filter should be empty")
	}
	if (&Filter{ProjectID: "p1"}).Empty() {
		t.Error("filter with project should not be empty")
	}
}
