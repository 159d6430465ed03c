package user

// ValidationError represents a simple validation error from DTO validation.
type ValidationError struct {
	Msg string
}

func (v ValidationError) Error() string { return v.Msg }

// Member is the organization-scoped view of a user: the account joined
// with its role in the organization.
type Member struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

type UpdateUserDTO struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
}

func (d UpdateUserDTO) Validate() error {
	if d.Name == nil && d.Email == nil {
		return ValidationError{Msg: "nothing to update"}
	}
	if d.Email != nil && *d.Email == "" {
		return ValidationError{Msg: "email cannot be empty"}
	}
	return nil
}
