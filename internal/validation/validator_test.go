// Colligo - Social Feed Assembly and Engagement Caching
// Copyright 2026 Colligo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/colligo-dev/colligo

package validation

import (
	"strings"
	"testing"
)

type likeRequest struct {
	PostID string `validate:"required,max=64"`
	UserID string `validate:"required,max=64"`
}

type feedRequest struct {
	ViewerID string `validate:"required,max=64"`
	Page     int    `validate:"gte=0"`
	Size     int    `validate:"gte=1,lte=50"`
}

func TestValidateStructPasses(t *testing.T) {
	req := likeRequest{PostID: "p1", UserID: "u1"}
	if verr := ValidateStruct(&req); verr != nil {
		t.Fatalf("expected valid struct, got: %v", verr)
	}
}

func TestValidateStructFailures(t *testing.T) {
	tests := []struct {
		name      string
		input     interface{}
		wantField string
		wantTag   string
	}{
		{
			name:      "missing post id",
			input:     &likeRequest{UserID: "u1"},
			wantField: "PostID",
			wantTag:   "required",
		},
		{
			name:      "post id too long",
			input:     &likeRequest{PostID: strings.Repeat("x", 65), UserID: "u1"},
			wantField: "PostID",
			wantTag:   "max",
		},
		{
			name:      "negative page",
			input:     &feedRequest{ViewerID: "v1", Page: -1, Size: 10},
			wantField: "Page",
			wantTag:   "gte",
		},
		{
			name:      "size over limit",
			input:     &feedRequest{ViewerID: "v1", Page: 0, Size: 500},
			wantField: "Size",
			wantTag:   "lte",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verr := ValidateStruct(tt.input)
			if verr == nil {
				t.Fatal("expected validation error, got nil")
			}
			errs := verr.Errors()
			if len(errs) != 1 {
				t.Fatalf("expected 1 error, got %d: %v", len(errs), verr)
			}
			if errs[0].Field() != tt.wantField {
				t.Errorf("expected field %q, got %q", tt.wantField, errs[0].Field())
			}
			if errs[0].Tag() != tt.wantTag {
				t.Errorf("expected tag %q, got %q", tt.wantTag, errs[0].Tag())
			}
		})
	}
}

func TestToAPIErrorSingle(t *testing.T) {
	verr := ValidateStruct(&likeRequest{UserID: "u1"})
	if verr == nil {
		t.Fatal("expected validation error")
	}

	apiErr := verr.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("expected VALIDATION_ERROR code, got %q", apiErr.Code)
	}
	if !strings.Contains(apiErr.Message, "PostID") {
		t.Errorf("expected message to name the field, got %q", apiErr.Message)
	}
	if apiErr.Details["field"] != "PostID" {
		t.Errorf("expected field detail, got %v", apiErr.Details)
	}
}

func TestToAPIErrorMultiple(t *testing.T) {
	verr := ValidateStruct(&feedRequest{Page: -1, Size: 0})
	if verr == nil {
		t.Fatal("expected validation error")
	}
	if len(verr.Errors()) < 2 {
		t.Fatalf("expected multiple errors, got %d", len(verr.Errors()))
	}

	apiErr := verr.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("expected VALIDATION_ERROR code, got %q", apiErr.Code)
	}
	fields, ok := apiErr.Details["fields"].([]map[string]interface{})
	if !ok {
		t.Fatalf("expected fields detail, got %T", apiErr.Details["fields"])
	}
	if len(fields) != len(verr.Errors()) {
		t.Errorf("expected %d field details, got %d", len(verr.Errors()), len(fields))
	}
}
