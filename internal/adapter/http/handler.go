package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/vendorhub/internal/app"
	"github.com/neomorfeo/vendorhub/internal/domain"
)

// SecurityScheme is the name of the bearer scheme referenced by protected operations.
const SecurityScheme = "bearer"

var bearerSecurity = []map[string][]string{{SecurityScheme: {}}}

// VendorResponse is the API representation of a vendor. The credential hash
// is never exposed.
type VendorResponse struct {
	ID                      string `json:"id" doc:"Unique identifier"`
	Name                    string `json:"name" doc:"Contact person"`
	CompanyName             string `json:"company_name"`
	CompanyType             string `json:"company_type" enum:"LLP,PVT,OPC,PROP,OTHER"`
	GSTIN                   string `json:"gstin" doc:"GST identification number"`
	ContactNumber           string `json:"contact_number"`
	Email                   string `json:"email"`
	Address                 string `json:"address"`
	Pincode                 string `json:"pincode"`
	IsActive                bool   `json:"is_active" doc:"Whether the vendor may operate"`
	DeactivationStatus      string `json:"deactivation_status" enum:"active,pending_deactivation,deactivated,pending_activation" doc:"Lifecycle state"`
	DeactivationRequestedBy string `json:"deactivation_requested_by,omitempty" doc:"Admin who requested the pending change"`
	DeactivationRequestedAt string `json:"deactivation_requested_at,omitempty" doc:"When the pending change was requested (RFC 3339)"`
	CreatedAt               string `json:"created_at" doc:"Creation timestamp (RFC 3339)"`
	UpdatedAt               string `json:"updated_at" doc:"Last update timestamp (RFC 3339)"`
}

func toVendorResponse(v domain.Vendor) VendorResponse {
	resp := VendorResponse{
		ID:                      v.ID,
		Name:                    v.Name,
		CompanyName:             v.CompanyName,
		CompanyType:             string(v.CompanyType),
		GSTIN:                   v.GSTIN,
		ContactNumber:           v.ContactNumber,
		Email:                   v.Email,
		Address:                 v.Address,
		Pincode:                 v.Pincode,
		IsActive:                v.IsActive,
		DeactivationStatus:      string(v.Status),
		DeactivationRequestedBy: v.StatusRequestedBy,
		CreatedAt:               v.CreatedAt.Format(time.RFC3339),
		UpdatedAt:               v.UpdatedAt.Format(time.RFC3339),
	}
	if !v.StatusRequestedAt.IsZero() {
		resp.DeactivationRequestedAt = v.StatusRequestedAt.Format(time.RFC3339)
	}
	return resp
}

// VendorBody is the request payload for create and update. Field rules are
// enforced by the service so both operations report them the same way.
type VendorBody struct {
	Name          string `json:"name,omitempty" doc:"Contact person"`
	CompanyName   string `json:"company_name,omitempty"`
	CompanyType   string `json:"company_type,omitempty" doc:"One of LLP, PVT, OPC, PROP, OTHER"`
	GSTIN         string `json:"gstin,omitempty" doc:"15 character GST identification number"`
	ContactNumber string `json:"contact_number,omitempty" doc:"10 to 15 characters"`
	Email         string `json:"email,omitempty"`
	Address       string `json:"address,omitempty"`
	Pincode       string `json:"pincode,omitempty"`
	Password      string `json:"password,omitempty" doc:"Required on create. On update, replaces the credential and mails it to the vendor."`
}

func (b VendorBody) input() app.VendorInput {
	return app.VendorInput{
		Name:          b.Name,
		CompanyName:   b.CompanyName,
		CompanyType:   b.CompanyType,
		GSTIN:         b.GSTIN,
		ContactNumber: b.ContactNumber,
		Email:         b.Email,
		Address:       b.Address,
		Pincode:       b.Pincode,
		Password:      b.Password,
	}
}

// --- Health ---

type HealthOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

// --- Login ---

type LoginInput struct {
	Body struct {
		Email    string `json:"email" minLength:"1" maxLength:"255"`
		Password string `json:"password" minLength:"1" maxLength:"72"`
	}
}

type LoginOutput struct {
	Body struct {
		Token string `json:"token" doc:"Bearer token for the vendor API"`
	}
}

// --- Vendors ---

type CreateVendorInput struct {
	Authorization string `header:"Authorization" doc:"Bearer token"`
	Body          VendorBody
}

type UpdateVendorInput struct {
	Authorization string `header:"Authorization" doc:"Bearer token"`
	ID            string `path:"id" doc:"Vendor ID"`
	Body          VendorBody
}

type VendorIDInput struct {
	Authorization string `header:"Authorization" doc:"Bearer token"`
	ID            string `path:"id" doc:"Vendor ID"`
}

type ListVendorsInput struct {
	Authorization string `header:"Authorization" doc:"Bearer token"`
}

type VendorOutput struct {
	Body VendorResponse
}

type ListVendorsOutput struct {
	Body []VendorResponse
}

// Register adds all vendor API routes to the Huma API.
func Register(api huma.API, vendors *app.VendorService, auth *app.AuthService, verifier domain.TokenVerifier) {
	// actor resolves the Authorization header to the calling admin.
	actor := func(ctx context.Context, header string) (domain.Actor, error) {
		token, ok := bearerToken(header)
		if !ok {
			return domain.Actor{}, domain.ErrUnauthenticated
		}
		return verifier.Verify(ctx, token)
	}

	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/healthz",
		Summary:     "Liveness probe",
		Tags:        []string{"System"},
	}, func(_ context.Context, _ *struct{}) (*HealthOutput, error) {
		out := &HealthOutput{}
		out.Body.Status = "ok"
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/login",
		Summary:     "Exchange admin credentials for a bearer token",
		Tags:        []string{"Auth"},
	}, func(ctx context.Context, input *LoginInput) (*LoginOutput, error) {
		token, err := auth.Login(ctx, input.Body.Email, input.Body.Password)
		if err != nil {
			return nil, toHumaError(ctx, err)
		}
		out := &LoginOutput{}
		out.Body.Token = token
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-vendor",
		Method:        http.MethodPost,
		Path:          "/api/v1/vendors",
		Summary:       "Create a vendor and mail its credentials",
		Tags:          []string{"Vendors"},
		DefaultStatus: http.StatusCreated,
		Security:      bearerSecurity,
	}, func(ctx context.Context, input *CreateVendorInput) (*VendorOutput, error) {
		a, err := actor(ctx, input.Authorization)
		if err != nil {
			return nil, toHumaError(ctx, err)
		}
		vendor, err := vendors.Create(ctx, a, input.Body.input())
		if err != nil {
			return nil, toHumaError(ctx, err)
		}
		return &VendorOutput{Body: toVendorResponse(vendor)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-vendors",
		Method:      http.MethodGet,
		Path:        "/api/v1/vendors",
		Summary:     "List vendors, newest first",
		Tags:        []string{"Vendors"},
		Security:    bearerSecurity,
	}, func(ctx context.Context, input *ListVendorsInput) (*ListVendorsOutput, error) {
		a, err := actor(ctx, input.Authorization)
		if err != nil {
			return nil, toHumaError(ctx, err)
		}
		list, err := vendors.List(ctx, a)
		if err != nil {
			return nil, toHumaError(ctx, err)
		}

		resp := make([]VendorResponse, len(list))
		for i, v := range list {
			resp[i] = toVendorResponse(v)
		}
		return &ListVendorsOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-vendor",
		Method:      http.MethodGet,
		Path:        "/api/v1/vendors/{id}",
		Summary:     "Get a vendor by ID",
		Tags:        []string{"Vendors"},
		Security:    bearerSecurity,
	}, func(ctx context.Context, input *VendorIDInput) (*VendorOutput, error) {
		a, err := actor(ctx, input.Authorization)
		if err != nil {
			return nil, toHumaError(ctx, err)
		}
		vendor, err := vendors.GetByID(ctx, a, input.ID)
		if err != nil {
			return nil, toHumaError(ctx, err)
		}
		return &VendorOutput{Body: toVendorResponse(vendor)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-vendor",
		Method:      http.MethodPut,
		Path:        "/api/v1/vendors/{id}",
		Summary:     "Update a vendor's profile",
		Tags:        []string{"Vendors"},
		Security:    bearerSecurity,
	}, func(ctx context.Context, input *UpdateVendorInput) (*VendorOutput, error) {
		a, err := actor(ctx, input.Authorization)
		if err != nil {
			return nil, toHumaError(ctx, err)
		}
		vendor, err := vendors.Update(ctx, a, input.ID, input.Body.input())
		if err != nil {
			return nil, toHumaError(ctx, err)
		}
		return &VendorOutput{Body: toVendorResponse(vendor)}, nil
	})

	transitions := []struct {
		id, path, summary string
		event             domain.Event
	}{
		{"deactivate-vendor", "/api/v1/vendors/{id}/deactivate", "Request deactivation of an active vendor", domain.EventRequestDeactivation},
		{"activate-vendor", "/api/v1/vendors/{id}/activate", "Request reactivation of a deactivated vendor", domain.EventRequestReactivation},
		{"reset-vendor", "/api/v1/vendors/{id}/reset", "Return a vendor to active", domain.EventReset},
	}
	for _, tr := range transitions {
		huma.Register(api, huma.Operation{
			OperationID: tr.id,
			Method:      http.MethodPost,
			Path:        tr.path,
			Summary:     tr.summary,
			Tags:        []string{"Vendors"},
			Security:    bearerSecurity,
		}, func(ctx context.Context, input *VendorIDInput) (*VendorOutput, error) {
			a, err := actor(ctx, input.Authorization)
			if err != nil {
				return nil, toHumaError(ctx, err)
			}
			vendor, err := vendors.Transition(ctx, a, input.ID, tr.event)
			if err != nil {
				return nil, toHumaError(ctx, err)
			}
			return &VendorOutput{Body: toVendorResponse(vendor)}, nil
		})
	}
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" header.
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// toHumaError translates domain errors to Huma HTTP errors.
func toHumaError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return huma.Error401Unauthorized("invalid email or password")
	case errors.Is(err, domain.ErrUnauthenticated):
		return huma.Error401Unauthorized("authentication required")
	case errors.Is(err, domain.ErrForbidden):
		return huma.Error403Forbidden(domain.ErrForbidden.Error())
	case errors.Is(err, domain.ErrVendorNotFound):
		return huma.Error404NotFound("vendor not found")
	}

	var emailErr *domain.EmailConflictError
	if errors.As(err, &emailErr) {
		return huma.Error409Conflict(emailErr.Error())
	}

	var trErr *domain.TransitionError
	if errors.As(err, &trErr) {
		return huma.Error400BadRequest(trErr.Error())
	}

	var valErr *domain.ValidationError
	if errors.As(err, &valErr) {
		return huma.Error422UnprocessableEntity("validation failed", &huma.ErrorDetail{
			Message:  valErr.Reason,
			Location: "body." + valErr.Field,
		})
	}

	slog.ErrorContext(ctx, "request failed", "error", err)
	return huma.Error500InternalServerError("internal server error")
}
