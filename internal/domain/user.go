package domain

// User is the authenticated identity supplied by the identity provider.
// The storefront never stores credentials.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Profile holds per-user contact data used for STK Push addressing.
type Profile struct {
	UserID      int64   `json:"user_id"`
	PhoneNumber *string `json:"phone_number,omitempty"`
}

// Phone returns the stored phone number, or "" when none is set.
func (p *Profile) Phone() string {
	if p == nil || p.PhoneNumber == nil {
		return ""
	}
	return *p.PhoneNumber
}
