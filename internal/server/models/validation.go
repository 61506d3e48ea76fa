package models

import "github.com/dmitrijs2005/voucher-auth/internal/common"

// ValidationResult is the outcome of a pre-flight check. Status is one of the
// common sentinel errors and is nil when Valid is true. UserID and UserName
// attribute the request for auditing.
type ValidationResult struct {
	Valid    bool
	Message  string
	Status   error
	UserID   string
	UserName string
}

func ValidResult(u *User) ValidationResult {
	return ValidationResult{Valid: true, UserID: u.ID, UserName: u.Username}
}

// Invalid builds a failed result attributed to u, or to the placeholders when
// u is nil.
func Invalid(status error, message string, u *User) ValidationResult {
	r := ValidationResult{
		Status:   status,
		Message:  message,
		UserID:   common.InvalidUserID,
		UserName: common.InvalidUserName,
	}
	if u != nil {
		r.UserID = u.ID
		r.UserName = u.Username
	}
	return r
}
