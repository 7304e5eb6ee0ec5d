package domain

import (
	"mime"
	"strings"
	"unicode/utf8"

	"github.com/asaskevich/govalidator"
)

const (
	MinTitleLength       = 3
	MinDescriptionLength = 3
	MinContentLength     = 10
	MinPasswordLength    = 6
)

// Validate checks the form before anything is sent to the backend.
func (f *PostForm) Validate() error {
	errs := ValidationErrors{}

	if utf8.RuneCountInString(f.Title) < MinTitleLength {
		errs["title"] = "Title must be at least 3 characters"
	}
	if utf8.RuneCountInString(f.Description) < MinDescriptionLength {
		errs["description"] = "Description must be at least 3 characters"
	}
	if utf8.RuneCountInString(f.Content) < MinContentLength {
		errs["content"] = "Content must be at least 10 characters"
	}

	switch {
	case f.CoverFile != nil:
		if !isImage(f.CoverFile.ContentType) {
			errs["cover_image"] = "Cover image must be an image file"
		} else if len(f.CoverFile.Data) == 0 {
			errs["cover_image"] = "Cover image is empty"
		}
	case strings.TrimSpace(f.CoverImage) == "":
		errs["cover_image"] = "Cover image is required"
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Validate checks a signup form.
func (f *SignupForm) Validate() error {
	errs := ValidationErrors{}

	if strings.TrimSpace(f.Name) == "" {
		errs["name"] = "Required"
	}
	validateEmail(errs, f.Email)

	switch {
	case f.Password == "":
		errs["password"] = "Required"
	case utf8.RuneCountInString(f.Password) < MinPasswordLength:
		errs["password"] = "Password must be at least 6 characters"
	case !govalidator.HasLowerCase(f.Password):
		errs["password"] = "Must contain at least one lowercase letter"
	case !govalidator.HasUpperCase(f.Password):
		errs["password"] = "Must contain at least one uppercase letter"
	case !strings.ContainsAny(f.Password, "0123456789"):
		errs["password"] = "Must contain at least one number"
	}

	switch {
	case f.ConfirmPassword == "":
		errs["confirm_password"] = "Required"
	case f.ConfirmPassword != f.Password:
		errs["confirm_password"] = "Passwords must match"
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Validate checks a login form.
func (f *LoginForm) Validate() error {
	errs := ValidationErrors{}

	validateEmail(errs, f.Email)
	switch {
	case f.Password == "":
		errs["password"] = "Required"
	case utf8.RuneCountInString(f.Password) < MinPasswordLength:
		errs["password"] = "Too short!"
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateEmail(errs ValidationErrors, email string) {
	switch {
	case email == "":
		errs["email"] = "Required"
	case !govalidator.IsEmail(email):
		errs["email"] = "Invalid email"
	}
}

func isImage(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mediaType, "image/")
}
