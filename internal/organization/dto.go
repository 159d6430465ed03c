package organization

// ValidationError represents a simple validation error from DTO validation.
type ValidationError struct {
	Msg string
}

func (v ValidationError) Error() string { return v.Msg }

// CreateOrganizationDTO creates an organization with its seeded roles,
// enrolls the creator as administrator and optionally sends invites.
type CreateOrganizationDTO struct {
	UserID  int64    `json:"userId"`
	Name    string   `json:"name"`
	Invites []string `json:"invites,omitempty"`
}

func (d CreateOrganizationDTO) Validate() error {
	if d.UserID <= 0 {
		return ValidationError{Msg: "userId is required"}
	}
	if d.Name == "" {
		return ValidationError{Msg: "name is required"}
	}
	return nil
}

type SendInvitesDTO struct {
	UserID  int64    `json:"userId"`
	Invites []string `json:"invites"`
}

func (d SendInvitesDTO) Validate() error {
	if d.UserID <= 0 {
		return ValidationError{Msg: "userId is required"}
	}
	if len(d.Invites) == 0 {
		return ValidationError{Msg: "invites are required"}
	}
	return nil
}

type CreateRoleDTO struct {
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	PermissionIDs []int64 `json:"permissionIds"`
}

func (d CreateRoleDTO) Validate() error {
	if d.Name == "" {
		return ValidationError{Msg: "name is required"}
	}
	return nil
}

type UpdateRoleDTO struct {
	Name          *string  `json:"name,omitempty"`
	Description   *string  `json:"description,omitempty"`
	PermissionIDs *[]int64 `json:"permissionIds,omitempty"`
}

func (d UpdateRoleDTO) Validate() error {
	if d.Name != nil && *d.Name == "" {
		return ValidationError{Msg: "name cannot be empty"}
	}
	return nil
}

// CreateOrganizationResultDTO returns the new organization id and a
// session token scoped to it.
type CreateOrganizationResultDTO struct {
	OrganizationID int64  `json:"organizationId"`
	Token          string `json:"token"`
}

// ValidateInviteResultDTO is returned by GET /organization/validate-invite.
// Email is populated only when the register flag is set.
type ValidateInviteResultDTO struct {
	Email          string `json:"email,omitempty"`
	OrganizationID int64  `json:"organizationId"`
}
