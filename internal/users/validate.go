package users

import "net/mail"

// ValidEmail 要求是不带显示名的裸地址。
func ValidEmail(email string) bool {
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
