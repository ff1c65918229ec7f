package validate_test

import (
	"testing"

	"github.com/shashiranjanraj/aquaportal/pkg/validate"
)

type signupForm struct {
	Name     string `json:"name"            validate:"required,max=80"`
	Email    string `json:"email"           validate:"required,email"`
	Password string `json:"password"        validate:"required,min=6"`
	Confirm  string `json:"confirmPassword" validate:"required,same=password"`
	Role     string `json:"role"            validate:"required,in=user|supplier|admin"`
	Quantity int    `json:"quantity"        validate:"gte=1"`
	Website  string `json:"website"         validate:"nullable,url"`
}

func valid() signupForm {
	return signupForm{
		Name:     "Asha",
		Email:    "asha@example.com",
		Password: "secret1",
		Confirm:  "secret1",
		Role:     "supplier",
		Quantity: 1,
	}
}

func TestValidInput(t *testing.T) {
	if errs := validate.Struct(valid()); validate.HasErrors(errs) {
		t.Errorf("expected no errors, got: %v", errs)
	}
}

func TestRequiredFails(t *testing.T) {
	errs := validate.Struct(signupForm{})
	for _, f := range []string{"name", "email", "password", "confirmPassword", "role", "quantity"} {
		if !errs.Has(f) {
			t.Errorf("expected %s to fail", f)
		}
	}
}

func TestSameRule(t *testing.T) {
	in := valid()
	in.Confirm = "different"
	errs := validate.Struct(in)
	if got := errs["confirmPassword"]; got != "The confirmPassword and password must match." {
		t.Errorf("unexpected message %q", got)
	}
}

func TestInRule(t *testing.T) {
	in := valid()
	in.Role = "courier"
	if !validate.Struct(in).Has("role") {
		t.Error("expected role outside the list to fail")
	}
}

func TestNullableSkipsEmpty(t *testing.T) {
	in := valid()
	in.Website = ""
	if validate.Struct(in).Has("website") {
		t.Error("nullable empty field must be skipped")
	}
	in.Website = "not a url"
	if !validate.Struct(in).Has("website") {
		t.Error("non-empty nullable field is still validated")
	}
}

func TestErrorIsStable(t *testing.T) {
	errs := validate.Errors{"b": "second.", "a": "first."}
	if got := errs.Error(); got != "first. second." {
		t.Errorf("unexpected joined error %q", got)
	}
}
