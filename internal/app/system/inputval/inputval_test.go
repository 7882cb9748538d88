package inputval_test

import (
	"strings"
	"testing"

	"github.com/iliyababin/youthscc/internal/app/system/inputval"
)

type sample struct {
	Name  string `validate:"required,max=10" label:"Name"`
	Email string `validate:"omitempty,email" label:"Email"`
	Role  string `validate:"omitempty,oneof=admin leader user" label:"Role"`
}

func TestStruct_Valid(t *testing.T) {
	res := inputval.Struct(sample{Name: "Jane", Email: "jane@example.com", Role: "user"})
	if res.HasErrors() {
		t.Errorf("expected no errors, got %v", res.Errors)
	}
}

func TestStruct_Required(t *testing.T) {
	res := inputval.Struct(sample{})
	if !res.HasErrors() {
		t.Fatal("expected errors")
	}
	if res.First() != "Name is required" {
		t.Errorf("unexpected message %q", res.First())
	}
}

func TestStruct_Max(t *testing.T) {
	res := inputval.Struct(sample{Name: strings.Repeat("x", 11)})
	if !res.HasErrors() {
		t.Fatal("expected errors")
	}
	if res.First() != "Name must be at most 10 characters" {
		t.Errorf("unexpected message %q", res.First())
	}
}

func TestStruct_OneOf(t *testing.T) {
	res := inputval.Struct(sample{Name: "Jane", Role: "superuser"})
	if !res.HasErrors() {
		t.Fatal("expected errors")
	}
	if !strings.HasPrefix(res.First(), "Role must be one of") {
		t.Errorf("unexpected message %q", res.First())
	}
}
