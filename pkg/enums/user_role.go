package enums

import "fmt"

// UserRole is the marketplace persona attached to an account.
type UserRole string

const (
	UserRoleCustomer UserRole = "customer"
	UserRoleCooker   UserRole = "cooker"
	UserRoleDelivery UserRole = "delivery"
	UserRoleAdmin    UserRole = "admin"
)

var validUserRoles = []UserRole{
	UserRoleCustomer,
	UserRoleCooker,
	UserRoleDelivery,
	UserRoleAdmin,
}

// String implements fmt.Stringer.
func (r UserRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known UserRole.
func (r UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsSelfServe reports whether the role may be chosen at sign-up.
func (r UserRole) IsSelfServe() bool {
	return r == UserRoleCustomer || r == UserRoleCooker || r == UserRoleDelivery
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	for _, candidate := range validUserRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
