package app

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/neomorfeo/vendorhub/internal/domain"
)

// VendorInput carries the caller-supplied vendor attributes for Create and
// Update. Password is required on Create and optional on Update.
type VendorInput struct {
	Name          string `json:"name" validate:"required,max=255"`
	CompanyName   string `json:"company_name" validate:"required,max=255"`
	CompanyType   string `json:"company_type" validate:"required,company_type"`
	GSTIN         string `json:"gstin" validate:"required,gstin"`
	ContactNumber string `json:"contact_number" validate:"required,min=10,max=15"`
	Email         string `json:"email" validate:"required,email,max=255"`
	Address       string `json:"address" validate:"required,max=500"`
	Pincode       string `json:"pincode" validate:"required,numeric,min=4,max=10"`
	Password      string `json:"password" validate:"omitempty,min=8,max=72"`
}

func (in VendorInput) profile() domain.Profile {
	return domain.Profile{
		Name:          in.Name,
		CompanyName:   in.CompanyName,
		CompanyType:   domain.CompanyType(in.CompanyType),
		GSTIN:         in.GSTIN,
		ContactNumber: in.ContactNumber,
		Email:         strings.ToLower(in.Email),
		Address:       in.Address,
		Pincode:       in.Pincode,
	}
}

// gstinPattern: 2 digits, 10 alphanumerics, a digit, a letter, a digit.
var gstinPattern = regexp.MustCompile(`^[0-9]{2}[A-Z0-9]{10}[0-9][A-Z][0-9]$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("gstin", func(fl validator.FieldLevel) bool {
		return gstinPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("company_type", func(fl validator.FieldLevel) bool {
		return domain.CompanyType(fl.Field().String()).Valid()
	})

	return v
}

func normalize(in *VendorInput) {
	in.Name = strings.TrimSpace(in.Name)
	in.CompanyName = strings.TrimSpace(in.CompanyName)
	in.CompanyType = strings.ToUpper(strings.TrimSpace(in.CompanyType))
	in.GSTIN = strings.ToUpper(strings.TrimSpace(in.GSTIN))
	in.ContactNumber = strings.TrimSpace(in.ContactNumber)
	in.Email = strings.TrimSpace(in.Email)
	in.Address = strings.TrimSpace(in.Address)
	in.Pincode = strings.TrimSpace(in.Pincode)
}

// validateInput normalizes in and checks it, returning the first failure as a
// domain.ValidationError.
func validateInput(in *VendorInput, requirePassword bool) error {
	normalize(in)

	if requirePassword && in.Password == "" {
		return &domain.ValidationError{Field: "password", Reason: "is required"}
	}

	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validating vendor input: %w", err)
	}

	fe := verrs[0]
	return &domain.ValidationError{Field: fe.Field(), Reason: reason(fe)}
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "gstin":
		return "must be a valid GSTIN (e.g. 22ABCDE1234F1Z5)"
	case "company_type":
		return "must be one of LLP, PVT, OPC, PROP, OTHER"
	case "numeric":
		return "must contain digits only"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	}
	return "is invalid"
}
