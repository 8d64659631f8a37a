package users

import (
	"github.com/medtrack/clinic-service/internal/docstore"
	"github.com/medtrack/clinic-service/internal/record"
)

// Roles stored in the userType field. Immutable after creation.
const (
	RoleDoctor  = "doktor"
	RolePatient = "hasta"
)

// User is an application identity record in the users collection. Doctors
// carry specialization/license fields, patients carry the doctorId
// back-reference; the other role's fields stay empty.
type User struct {
	ID        string `json:"id"`
	AuthID    string `json:"authId"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"userType"`

	// Doctor fields.
	Specialization string `json:"specialization,omitempty"`
	LicenseNumber  string `json:"licenseNumber,omitempty"`

	// Patient field.
	DoctorID string `json:"doctorId,omitempty"`

	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// UpdateProfileRequest carries the only user fields editable after creation.
type UpdateProfileRequest struct {
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

func ValidRole(role string) bool {
	return role == RoleDoctor || role == RolePatient
}

// FromDoc maps a loosely typed store document to a User, defaulting
// unexpected shapes rather than trusting the wire data.
func FromDoc(doc docstore.Document) *User {
	return &User{
		ID:             record.Str(doc, "id"),
		AuthID:         record.Str(doc, "authId"),
		Email:          record.Str(doc, "email"),
		FirstName:      record.Str(doc, "firstName"),
		LastName:       record.Str(doc, "lastName"),
		Role:           record.Str(doc, "userType"),
		Specialization: record.Str(doc, "specialization"),
		LicenseNumber:  record.Str(doc, "licenseNumber"),
		DoctorID:       record.Str(doc, "doctorId"),
		CreatedAt:      record.Str(doc, "createdAt"),
		UpdatedAt:      record.Str(doc, "updatedAt"),
	}
}

// ToDoc maps a User to its document shape. Role-conditional fields are
// included only when present so no field is ever written as the undefined
// sentinel.
func ToDoc(u *User) docstore.Document {
	doc := docstore.Document{
		"authId":    u.AuthID,
		"email":     u.Email,
		"firstName": u.FirstName,
		"lastName":  u.LastName,
		"userType":  u.Role,
	}
	if u.Specialization != "" {
		doc["specialization"] = u.Specialization
	}
	if u.LicenseNumber != "" {
		doc["licenseNumber"] = u.LicenseNumber
	}
	if u.DoctorID != "" {
		doc["doctorId"] = u.DoctorID
	}
	return doc
}

// DisplayName is the cached display string denormalized onto child records.
// Dangling references fall back to this rather than failing.
func (u *User) DisplayName() string {
	if u.FirstName == "" && u.LastName == "" {
		return "Bilinmeyen Kullanıcı"
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
