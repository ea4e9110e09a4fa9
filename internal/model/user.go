package model

// User is the snapshot of a source tracker account.
type User struct {
	ID              int    `json:"-"`
	AccountID       string `json:"account_id"`
	Email           string `json:"email,omitempty"`
	DisplayName     string `json:"display_name,omitempty"`
	TargetAccountID string `json:"target_account_id,omitempty"`
}

// Resolvable reports whether the user can be looked up on the target by email.
func (u *User) Resolvable() bool {
	return u != nil && u.Email != "" && u.TargetAccountID == ""
}
