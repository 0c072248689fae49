package notifications

import (
	"reflect"
	"testing"

	"edumesh/models"
)

func ptr(v uint) *uint { return &v }

func TestAssembleAudience(t *testing.T) {
	students := []models.Student{
		{UserID: 10, ParentID: ptr(100)},
		{UserID: 11, ParentID: ptr(100)}, // siblings share a parent
		{UserID: 12, ParentID: nil},      // no linked parent
		{UserID: 13, ParentID: ptr(101)},
	}

	tests := []struct {
		name string
		mode AudienceMode
		want []uint
	}{
		{
			name: "students and parents deduplicates shared parent",
			mode: StudentsAndParents,
			want: []uint{10, 100, 11, 12, 13, 101},
		},
		{
			name: "parents only skips students and unlinked",
			mode: ParentsOnly,
			want: []uint{100, 101},
		},
		{
			name: "students only",
			mode: StudentsOnly,
			want: []uint{10, 11, 12, 13},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AssembleAudience(students, tt.mode)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("AssembleAudience() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAssembleAudienceEmpty(t *testing.T) {
	if got := AssembleAudience(nil, StudentsAndParents); len(got) != 0 {
		t.Errorf("expected empty audience, got %v", got)
	}
}
