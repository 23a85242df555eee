package project

import (
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const maxNameLength = 200

var ErrInvalidName = errors.New("invalid project name")

// NormalizeName trims the name and checks it can be stored.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	err := validation.Validate(name,
		validation.Required.Error("must not be empty"),
		validation.RuneLength(1, maxNameLength),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidName, err)
	}
	return name, nil
}
