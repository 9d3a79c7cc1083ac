package validator

import (
	"regexp"
	"strings"
)

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]{3,30}$`)
)

// ValidationErrors maps a field name to its first validation failure.
type ValidationErrors map[string]string

func (v ValidationErrors) Any() bool {
	return len(v) > 0
}

func ValidateRegister(email, username, displayName, password string) ValidationErrors {
	errs := ValidationErrors{}

	if email == "" {
		errs["email"] = "email is required"
	} else if !emailRegex.MatchString(email) {
		errs["email"] = "email is not valid"
	}

	if username == "" {
		errs["username"] = "username is required"
	} else if !usernameRegex.MatchString(username) {
		errs["username"] = "username must be 3-30 characters, letters, digits and underscores only"
	}

	if strings.TrimSpace(displayName) == "" {
		errs["display_name"] = "display name is required"
	} else if len(displayName) > 50 {
		errs["display_name"] = "display name must be at most 50 characters"
	}

	if password == "" {
		errs["password"] = "password is required"
	} else if len(password) < 8 {
		errs["password"] = "password must be at least 8 characters"
	}

	return errs
}

func ValidateLogin(email, password string) ValidationErrors {
	errs := ValidationErrors{}

	if email == "" {
		errs["email"] = "email is required"
	}
	if password == "" {
		errs["password"] = "password is required"
	}

	return errs
}

// ValidateGroup checks group creation input. A group needs a name and at
// least two other members besides the creator.
func ValidateGroup(name string, participantCount int) ValidationErrors {
	errs := ValidationErrors{}

	name = strings.TrimSpace(name)
	if name == "" {
		errs["name"] = "group name is required"
	} else if len(name) > 100 {
		errs["name"] = "group name must be at most 100 characters"
	}

	if participantCount < 2 {
		errs["participant_ids"] = "a group needs at least two other participants"
	}

	return errs
}
