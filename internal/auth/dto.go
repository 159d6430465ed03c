package auth

// ValidationError represents a simple validation error from DTO validation.
type ValidationError struct {
	Msg string
}

func (v ValidationError) Error() string { return v.Msg }

// RegisterDTO is the transport shape for account registration.
type RegisterDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

func (d RegisterDTO) Validate() error {
	if d.Email == "" {
		return ValidationError{Msg: "email is required"}
	}
	if d.Password == "" {
		return ValidationError{Msg: "password is required"}
	}
	if len(d.Password) < 8 {
		return ValidationError{Msg: "password must be at least 8 characters"}
	}
	return nil
}

type LoginDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (d LoginDTO) Validate() error {
	if d.Email == "" {
		return ValidationError{Msg: "email is required"}
	}
	if d.Password == "" {
		return ValidationError{Msg: "password is required"}
	}
	return nil
}

// MeDTO carries the session token in the body; this endpoint predates
// bearer-header auth on the client and keeps its original contract.
type MeDTO struct {
	Token string `json:"token"`
}

func (d MeDTO) Validate() error {
	if d.Token == "" {
		return ValidationError{Msg: "token is required"}
	}
	return nil
}

type CheckPermissionsDTO struct {
	Token     string   `json:"token"`
	Actions   []string `json:"actions"`
	Resources []string `json:"resources"`
}

func (d CheckPermissionsDTO) Validate() error {
	if d.Token == "" {
		return ValidationError{Msg: "token is required"}
	}
	if len(d.Actions) == 0 {
		return ValidationError{Msg: "actions are required"}
	}
	if len(d.Resources) == 0 {
		return ValidationError{Msg: "resources are required"}
	}
	return nil
}

type SwitchOrganizationDTO struct {
	Token          string `json:"token"`
	OrganizationID int64  `json:"organizationId"`
}

func (d SwitchOrganizationDTO) Validate() error {
	if d.Token == "" {
		return ValidationError{Msg: "token is required"}
	}
	if d.OrganizationID <= 0 {
		return ValidationError{Msg: "organizationId is required"}
	}
	return nil
}

// ProfileDTO is the /auth/me response body.
type ProfileDTO struct {
	ID          int64            `json:"id"`
	Email       string           `json:"email"`
	Name        string           `json:"name,omitempty"`
	Memberships []MembershipInfo `json:"memberships"`
}

type TokenDTO struct {
	Token string `json:"token"`
}

type CheckPermissionsResultDTO struct {
	Allowed bool `json:"allowed"`
}
