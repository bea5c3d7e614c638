package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type usernameForm struct {
	Username string `validate:"required,username"`
}

func TestValidateStructUsernameRule(t *testing.T) {
	InitValidator()

	assert.NoError(t, ValidateStruct(&usernameForm{Username: "alice_01"}))

	for _, bad := range []string{"", "ab", "has space", "bad-dash", "名字"} {
		err := ValidateStruct(&usernameForm{Username: bad})
		assert.Error(t, err, bad)
	}
}
