package mail

import gomail "github.com/emersion/go-message/mail"

// parseBare strips a display name, returning only the address.
func parseBare(addr string) (string, error) {
	parsed, err := gomail.ParseAddress(addr)
	if err != nil {
		return "", err
	}
	return parsed.Address, nil
}
