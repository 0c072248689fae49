package utils

import "testing"

func TestIsValidRole(t *testing.T) {
	for _, role := range []string{"admin", "teacher", "parent", "student"} {
		if !IsValidRole(role) {
			t.Errorf("expected %q to be valid", role)
		}
	}
	for _, role := range []string{"", "superadmin", "Admin", "guest"} {
		if IsValidRole(role) {
			t.Errorf("expected %q to be invalid", role)
		}
	}
}

func TestIsValidAttendanceStatus(t *testing.T) {
	for _, status := range []string{"present", "absent", "late", "excused"} {
		if !IsValidAttendanceStatus(status) {
			t.Errorf("expected %q to be valid", status)
		}
	}
	if IsValidAttendanceStatus("missing") {
		t.Error("expected 'missing' to be invalid")
	}
}

func TestIsValidFileExtension(t *testing.T) {
	tests := []struct {
		filename string
		allowed  []string
		want     bool
	}{
		{"report.xlsx", []string{"xlsx"}, true},
		{"photo.JPG", []string{"jpg", "png"}, true},
		{"script.exe", []string{"jpg", "png"}, false},
		{"noextension", []string{"jpg"}, false},
		{"", []string{"jpg"}, false},
	}
	for _, tt := range tests {
		if got := IsValidFileExtension(tt.filename, tt.allowed); got != tt.want {
			t.Errorf("IsValidFileExtension(%q, %v) = %v, want %v",
				tt.filename, tt.allowed, got, tt.want)
		}
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  hello\x00world  "); got != "helloworld" {
		t.Errorf("unexpected sanitized value %q", got)
	}
}

func TestValidateStruct(t *testing.T) {
	type dto struct {
		Name  string `validate:"required,min=2"`
		Email string `validate:"omitempty,email"`
	}

	if errs := ValidateStruct(dto{Name: "ok"}); errs != nil {
		t.Errorf("expected valid struct, got %v", errs)
	}

	errs := ValidateStruct(dto{Email: "not-an-email"})
	if errs == nil {
		t.Fatal("expected validation errors")
	}
	if _, ok := errs["name"]; !ok {
		t.Errorf("expected a name error, got %v", errs)
	}
	if _, ok := errs["email"]; !ok {
		t.Errorf("expected an email error, got %v", errs)
	}
}
