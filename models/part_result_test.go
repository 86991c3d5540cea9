package models

import (
	"errors"
	"testing"
)

func TestNewPartResultSuccess(t *testing.T) {
	pr, err := NewPartResultSuccess("cut_000", 0, "/tmp/part_000.mp4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !pr.Success || pr.Error != nil {
		t.Errorf("unexpected result state: %+v", pr)
	}

	if _, err := NewPartResultSuccess("cut_000", 0, "  "); err == nil {
		t.Error("expected error for empty output path")
	}
}

func TestNewPartResultFailure(t *testing.T) {
	cause := errors.New("ffmpeg exited 1")
	pr, err := NewPartResultFailure("cut_003", 3, cause)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pr.Success || !errors.Is(pr.Error, cause) {
		t.Errorf("unexpected result state: %+v", pr)
	}
	if err := pr.Validate(); err != nil {
		t.Errorf("failure result should validate: %v", err)
	}

	if _, err := NewPartResultFailure("cut_003", 3, nil); err == nil {
		t.Error("expected error for nil cause")
	}
}

func TestPartResultValidate(t *testing.T) {
	tests := []struct {
		name    string
		result  PartResult
		wantErr bool
	}{
		{"success with error", PartResult{Success: true, OutputPath: "a", Error: errors.New("x")}, true},
		{"failure without error", PartResult{Success: false}, true},
		{"failure with path", PartResult{Success: false, OutputPath: "a", Error: errors.New("x")}, true},
		{"success", PartResult{Success: true, OutputPath: "a"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.result.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
