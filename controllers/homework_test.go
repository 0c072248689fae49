package controllers

import (
	"fmt"
	"testing"

	"gorm.io/gorm"
)

func TestIsDuplicateKey(t *testing.T) {
	if !isDuplicateKey(gorm.ErrDuplicatedKey) {
		t.Error("bare duplicated-key error should match")
	}
	wrapped := fmt.Errorf("create submission: %w", gorm.ErrDuplicatedKey)
	if !isDuplicateKey(wrapped) {
		t.Error("wrapped duplicated-key error should match")
	}
	if isDuplicateKey(gorm.ErrRecordNotFound) {
		t.Error("unrelated errors must not map to a conflict")
	}
	if isDuplicateKey(nil) {
		t.Error("nil is not a duplicate")
	}
}

func TestValidateMarks(t *testing.T) {
	tests := []struct {
		name     string
		marks    int
		maxMarks int
		wantErr  bool
	}{
		{"within range", 15, 20, false},
		{"exactly max", 20, 20, false},
		{"zero marks", 0, 20, false},
		{"above max", 21, 20, true},
		{"negative", -1, 20, true},
		{"no max set accepts any positive", 500, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMarks(tt.marks, tt.maxMarks)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateMarks(%d, %d) error = %v, wantErr %v",
					tt.marks, tt.maxMarks, err, tt.wantErr)
			}
		})
	}
}
