package user

import (
	"strings"

	"github.com/frahmantamala/civic-complaints/internal/core/common/validation"
)

const (
	minPasswordLength = 6
	maxPasswordLength = 72 // bcrypt ignores anything beyond 72 bytes
	maxNameLength     = 100
	maxPhoneLength    = 20
	maxAddressLength  = 500
)

// RegisterDTO is the signup payload. Signups always create citizens.
type RegisterDTO struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
	Address  string `json:"address,omitempty"`
}

// Normalize trims every field except the password and lower-cases the email.
func (dto *RegisterDTO) Normalize() {
	dto.Name = strings.TrimSpace(dto.Name)
	dto.Email = strings.ToLower(strings.TrimSpace(dto.Email))
	dto.Phone = strings.TrimSpace(dto.Phone)
	dto.Address = strings.TrimSpace(dto.Address)
}

func (dto RegisterDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("name", dto.Name).Required().MaxLength(maxNameLength)
	v.Field("email", dto.Email).Required().Email()
	v.Field("password", dto.Password).Required().MinLength(minPasswordLength).MaxLength(maxPasswordLength)
	v.Field("phone", dto.Phone).MaxLength(maxPhoneLength)
	v.Field("address", dto.Address).MaxLength(maxAddressLength)
	return v.Err()
}
