package domain

import "time"

// Status represents the lifecycle state of a vendor account.
type Status string

const (
	StatusActive              Status = "active"
	StatusPendingDeactivation Status = "pending_deactivation"
	StatusDeactivated         Status = "deactivated"
	StatusPendingActivation   Status = "pending_activation"
)

// Event represents an action that triggers a status transition.
type Event string

const (
	EventRequestDeactivation Event = "request_deactivation"
	EventRequestReactivation Event = "request_reactivation"
	EventReset               Event = "reset"
)

// Transition defines a valid state change: an event moves a vendor from Src to Dst.
type Transition struct {
	Event Event
	Src   Status
	Dst   Status
}

// Transitions defines all valid state changes in the vendor lifecycle.
// Reset is an administrative override and is accepted from every state.
var Transitions = []Transition{
	{Event: EventRequestDeactivation, Src: StatusActive, Dst: StatusPendingDeactivation},
	{Event: EventRequestReactivation, Src: StatusPendingDeactivation, Dst: StatusPendingActivation},
	{Event: EventRequestReactivation, Src: StatusDeactivated, Dst: StatusPendingActivation},
	{Event: EventReset, Src: StatusActive, Dst: StatusActive},
	{Event: EventReset, Src: StatusPendingDeactivation, Dst: StatusActive},
	{Event: EventReset, Src: StatusDeactivated, Dst: StatusActive},
	{Event: EventReset, Src: StatusPendingActivation, Dst: StatusActive},
}

// CompanyType is the legal form of a vendor's company.
type CompanyType string

const (
	CompanyLLP   CompanyType = "LLP"
	CompanyPVT   CompanyType = "PVT"
	CompanyOPC   CompanyType = "OPC"
	CompanyProp  CompanyType = "PROP"
	CompanyOther CompanyType = "OTHER"
)

// Valid reports whether c is one of the known company types.
func (c CompanyType) Valid() bool {
	switch c {
	case CompanyLLP, CompanyPVT, CompanyOPC, CompanyProp, CompanyOther:
		return true
	}
	return false
}

// Vendor is the core domain entity: a supplier account managed by vendor admins.
type Vendor struct {
	ID            string
	Name          string
	CompanyName   string
	CompanyType   CompanyType
	GSTIN         string
	ContactNumber string
	Email         string
	PasswordHash  string
	Address       string
	Pincode       string
	IsActive      bool
	Status        Status

	// StatusRequestedBy and StatusRequestedAt describe the outstanding
	// request, if any. Both are zero once the vendor is reset to active.
	StatusRequestedBy string
	StatusRequestedAt time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Profile holds the mutable, non-lifecycle attributes of a vendor.
type Profile struct {
	Name          string
	CompanyName   string
	CompanyType   CompanyType
	GSTIN         string
	ContactNumber string
	Email         string
	Address       string
	Pincode       string
}

// NewVendor creates an active vendor with the given profile and credential hash.
func NewVendor(id string, p Profile, passwordHash string) Vendor {
	now := time.Now().UTC()
	v := Vendor{
		ID:           id,
		PasswordHash: passwordHash,
		IsActive:     true,
		Status:       StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	v.SetProfile(p)
	return v
}

// SetProfile overwrites the vendor's mutable attributes.
func (v *Vendor) SetProfile(p Profile) {
	v.Name = p.Name
	v.CompanyName = p.CompanyName
	v.CompanyType = p.CompanyType
	v.GSTIN = p.GSTIN
	v.ContactNumber = p.ContactNumber
	v.Email = p.Email
	v.Address = p.Address
	v.Pincode = p.Pincode
}

// EffectiveStatus is the state the lifecycle rules are evaluated against.
// A row marked active whose is_active flag is already cleared is treated as
// deactivated, so it can be reactivated but not deactivated again.
func (v Vendor) EffectiveStatus() Status {
	if v.Status == StatusActive && !v.IsActive {
		return StatusDeactivated
	}
	return v.Status
}

// WithStatus returns a copy of v moved to status s. Entering active clears the
// outstanding request; every other state records who asked and when.
// pending_activation leaves is_active untouched until an admin resets the vendor.
func (v Vendor) WithStatus(s Status, requestedBy string, at time.Time) Vendor {
	v.Status = s
	v.UpdatedAt = at

	switch s {
	case StatusActive:
		v.IsActive = true
		v.StatusRequestedBy = ""
		v.StatusRequestedAt = time.Time{}
		return v
	case StatusPendingDeactivation, StatusDeactivated:
		v.IsActive = false
	case StatusPendingActivation:
	}

	v.StatusRequestedBy = requestedBy
	v.StatusRequestedAt = at
	return v
}

// Consistent reports whether the is_active flag agrees with the status.
func (v Vendor) Consistent() bool {
	switch v.Status {
	case StatusActive:
		return v.IsActive
	case StatusPendingDeactivation, StatusDeactivated:
		return !v.IsActive
	case StatusPendingActivation:
		return true
	}
	return false
}

// Topic names a change notification delivered to observers.
type Topic string

const (
	TopicVendorAdded         Topic = "vendor_added"
	TopicVendorUpdated       Topic = "vendor_updated"
	TopicVendorStatusChanged Topic = "vendor_status_changed"
)
