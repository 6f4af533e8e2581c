package identity

import (
	"slices"
	"time"
)

// Kind tags which store a principal was resolved from.
type Kind string

const (
	KindUser        Kind = "user"
	KindInstitution Kind = "institution"
)

// Default role tags assigned at creation.
const (
	RoleUser = "USER"
	RoleBank = "BANK"
)

// FarmProfile holds the business attributes used for credit scoring. The
// authentication core treats it as opaque.
type FarmProfile struct {
	Year               string  `json:"year,omitempty"`
	Country            string  `json:"country,omitempty"`
	Region             string  `json:"region,omitempty"`
	LandSize           float64 `json:"landSize,omitempty"`
	SoilType           string  `json:"soilType,omitempty"`
	PastYield          float64 `json:"pastYield,omitempty"`
	CropTypes          string  `json:"cropTypes,omitempty"`
	AnnualIncome       int64   `json:"annualIncome,omitempty"`
	SoilPH             float64 `json:"soilPH,omitempty"`
	NitrogenLevel      int     `json:"nitrogenLevel,omitempty"`
	OrganicMatterLevel int     `json:"organicMatterLevel,omitempty"`
	LandQualityScore   int     `json:"landQualityScore,omitempty"`
	PastRainfall       float64 `json:"pastRainfall,omitempty"`
	AvgTemperature     float64 `json:"avgTemperature,omitempty"`
}

// User is an individual farmer principal.
type User struct {
	ID           string
	Name         string
	PasswordHash []byte
	Email        string
	Phone        string
	Roles        []string

	// OTP is the single outstanding challenge code; empty means none pending.
	OTP          string
	OTPExpiresAt time.Time

	EmailVerified       bool
	PhoneVerified       bool
	CreditScoreVerified bool
	CreditScore         float64
	LoanApproved        bool
	History             []string
	Profile             FarmProfile

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasPendingOTP reports whether a challenge code is stored on the record.
func (u User) HasPendingOTP() bool {
	return u.OTP != ""
}

// Clone returns a copy that shares no slices with u.
func (u User) Clone() User {
	u.PasswordHash = slices.Clone(u.PasswordHash)
	u.Roles = slices.Clone(u.Roles)
	u.History = slices.Clone(u.History)
	return u
}

// Institution is a bank or NBFC principal. ApprovedUsers references user
// records by name; the institution does not own their lifecycle.
type Institution struct {
	ID             string
	Name           string
	CredentialHash []byte
	Roles          []string
	ApprovedUsers  []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Clone returns a copy that shares no slices with i.
func (i Institution) Clone() Institution {
	i.CredentialHash = slices.Clone(i.CredentialHash)
	i.Roles = slices.Clone(i.Roles)
	i.ApprovedUsers = slices.Clone(i.ApprovedUsers)
	return i
}

// Principal is the kind-tagged outcome of resolving an identifier. Exactly one
// of User or Institution is set, matching Kind.
type Principal struct {
	Kind        Kind
	Name        string
	Roles       []string
	SecretHash  []byte
	User        *User
	Institution *Institution
}

func principalFromUser(u User) Principal {
	return Principal{Kind: KindUser, Name: u.Name, Roles: slices.Clone(u.Roles), SecretHash: u.PasswordHash, User: &u}
}

func principalFromInstitution(i Institution) Principal {
	return Principal{Kind: KindInstitution, Name: i.Name, Roles: slices.Clone(i.Roles), SecretHash: i.CredentialHash, Institution: &i}
}

// SignupInput is the candidate record submitted for a new user.
type SignupInput struct {
	Name     string `json:"name" validate:"required"`
	Password string `json:"password" validate:"required"`
	Email    string `json:"email" validate:"omitempty,email"`
	Phone    string `json:"phoneNo" validate:"omitempty,e164"`
	Profile  FarmProfile
}

// InstitutionSignupInput is the candidate record submitted for a new institution.
type InstitutionSignupInput struct {
	Name       string `json:"bankName" validate:"required"`
	Credential string `json:"bankCredentials" validate:"required"`
}

// UserUpdate carries the mutable user fields. Nil pointers are left unchanged.
type UserUpdate struct {
	Email   *string      `json:"email" validate:"omitempty,email"`
	Phone   *string      `json:"phoneNo" validate:"omitempty,e164"`
	Profile *FarmProfile `json:"-"`
}
