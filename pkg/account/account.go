// Package account covers the credential flows outside login: signup and the
// three password flows. Every form is validated locally first; a form with
// errors never reaches the backend.
package account

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/shashiranjanraj/aquaportal/pkg/gateway"
	"github.com/shashiranjanraj/aquaportal/pkg/geo"
	"github.com/shashiranjanraj/aquaportal/pkg/session"
	"github.com/shashiranjanraj/aquaportal/pkg/validate"
)

// ValidationError blocks a submission before any request is sent. Message is
// the single line shown to the user; Fields has the per-field detail.
type ValidationError struct {
	Message string
	Fields  validate.Errors
}

func (e *ValidationError) Error() string { return e.Message }

const (
	msgMissingFields   = "Please fill in all fields"
	msgPasswordsDiffer = "Passwords do not match"
	msgNewDiffer       = "New passwords do not match"

	// ForgotSentMessage is shown whether or not the email exists.
	ForgotSentMessage = "If this email is registered, a reset link will be sent."
	SignupDoneMessage = "Signup successful! Please login."
	PasswordChanged   = "Password changed successfully"
	ResetDoneMessage  = "Password reset successful. Redirecting to login..."

	signupFailed     = "Signup failed. Please try again."
	changeFailed     = "Error changing password"
	forgotFailed     = "Failed to send reset email."
	resetFailed      = "Failed to reset password. Token might be invalid, expired, or role mismatch."
	locationRequired = "Unable to retrieve your location. Please enable location access and try again."
)

// Service runs the account flows against the backend.
type Service struct {
	gw      *gateway.Client
	locator geo.Locator
}

func NewService(gw *gateway.Client, locator geo.Locator) *Service {
	return &Service{gw: gw, locator: locator}
}

// ─── Signup ──────────────────────────────────────────────────────────────────

type SignupForm struct {
	Name            string `json:"name"            validate:"required"`
	Email           string `json:"email"           validate:"required"`
	Password        string `json:"password"        validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,same=password"`
	Role            string `json:"role"            validate:"required,in=user|supplier|admin"`
}

type signupBody struct {
	Name     string       `json:"name"`
	Email    string       `json:"email"`
	Password string       `json:"password"`
	Role     string       `json:"role"`
	Location *geo.GeoJSON `json:"location,omitempty"`
}

// Signup registers an account. Suppliers must have a position; it is sent as
// a GeoJSON point.
func (s *Service) Signup(ctx context.Context, f SignupForm) (string, error) {
	if err := check(f, msgPasswordsDiffer); err != nil {
		return "", err
	}

	body := signupBody{Name: f.Name, Email: f.Email, Password: f.Password, Role: f.Role}
	if session.Role(f.Role) == session.RoleSupplier {
		p, err := s.locator.Locate(ctx)
		if err != nil {
			return "", &locationError{err}
		}
		gj := p.GeoJSON()
		body.Location = &gj
	}

	if err := s.gw.Post("/auth/signup").Body(body).Send(ctx); err != nil {
		return "", err
	}
	return SignupDoneMessage, nil
}

// ─── Change password ─────────────────────────────────────────────────────────

type ChangePasswordForm struct {
	CurrentPassword    string `json:"currentPassword"    validate:"required"`
	NewPassword        string `json:"newPassword"        validate:"required"`
	ConfirmNewPassword string `json:"confirmNewPassword" validate:"required,same=newPassword"`
}

// ChangePassword updates the logged-in account's password and returns the
// backend's confirmation.
func (s *Service) ChangePassword(ctx context.Context, f ChangePasswordForm) (string, error) {
	if err := check(f, msgNewDiffer); err != nil {
		return "", err
	}

	var out struct {
		Message string `json:"message"`
	}
	body := map[string]string{"currentPassword": f.CurrentPassword, "newPassword": f.NewPassword}
	if err := s.gw.Post("/auth/change-password").Body(body).Decode(&out).Send(ctx); err != nil {
		return "", err
	}
	if out.Message == "" {
		return PasswordChanged, nil
	}
	return out.Message, nil
}

// ─── Forgot / reset ──────────────────────────────────────────────────────────

type ForgotPasswordForm struct {
	Email string `json:"email" validate:"required"`
	Role  string `json:"role"  validate:"required,in=user|supplier|admin"`
}

// ForgotPassword asks the backend to mail a reset link. The answer never
// reveals whether the address is registered.
func (s *Service) ForgotPassword(ctx context.Context, f ForgotPasswordForm) (string, error) {
	if err := check(f, ""); err != nil {
		return "", err
	}
	if err := s.gw.Post("/forgot-password").Body(f).Send(ctx); err != nil {
		return "", err
	}
	return ForgotSentMessage, nil
}

type ResetPasswordForm struct {
	Token           string `json:"-"               validate:"required"`
	Password        string `json:"password"        validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,same=password"`
	Role            string `json:"role"            validate:"required,in=user|supplier|admin"`
}

// ResetPassword sets a new password using the emailed token.
func (s *Service) ResetPassword(ctx context.Context, f ResetPasswordForm) (string, error) {
	if err := check(f, msgPasswordsDiffer); err != nil {
		return "", err
	}
	err := s.gw.Post("/reset-password/" + url.PathEscape(f.Token)).
		Route("/reset-password/:token").
		Body(f).
		Send(ctx)
	if err != nil {
		return "", err
	}
	return ResetDoneMessage, nil
}

// ─── Errors ──────────────────────────────────────────────────────────────────

type locationError struct{ cause error }

func (e *locationError) Error() string { return locationRequired }
func (e *locationError) Unwrap() error { return e.cause }

// check runs struct validation. A failed "same" rule alone reports
// mismatchMsg; anything else is a missing field.
func check(form interface{}, mismatchMsg string) error {
	errs := validate.Struct(form)
	if !validate.HasErrors(errs) {
		return nil
	}

	onlyMismatch := mismatchMsg != ""
	for _, msg := range errs {
		if !strings.HasSuffix(msg, "must match.") {
			onlyMismatch = false
		}
	}
	if onlyMismatch {
		return &ValidationError{Message: mismatchMsg, Fields: errs}
	}
	return &ValidationError{Message: msgMissingFields, Fields: errs}
}

// Flow names an account form for Message.
type Flow string

const (
	FlowSignup Flow = "signup"
	FlowChange Flow = "change"
	FlowForgot Flow = "forgot"
	FlowReset  Flow = "reset"
)

var fallbacks = map[Flow]string{
	FlowSignup: signupFailed,
	FlowChange: changeFailed,
	FlowForgot: forgotFailed,
	FlowReset:  resetFailed,
}

// Message returns the user-facing text for an error from flow. Forgot and
// reset never echo the backend's reason.
func Message(err error, flow Flow) string {
	var ve *ValidationError
	var le *locationError
	switch {
	case errors.As(err, &ve):
		return ve.Message
	case errors.As(err, &le):
		return le.Error()
	case flow == FlowForgot || flow == FlowReset:
		return fallbacks[flow]
	}
	return gateway.Message(err, fallbacks[flow])
}
