package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type accountForm struct {
	FullName string `json:"fullName" validate:"required"`
	Email    string `json:"email" validate:"required,contains=@"`
	Nickname string `json:"nickname" validate:"max=3"`
}

func TestStructReportsEveryFailure(t *testing.T) {
	errs := Struct(accountForm{Email: "jane.x.com", Nickname: "toolong"})

	require.Len(t, errs, 3)
	assert.Equal(t, "fullName", errs[0].Field)
	assert.Equal(t, "full name is required", errs[0].Message)
	assert.Equal(t, "email must contain @", errs[1].Message)
	assert.Equal(t, "nickname must be at most 3 characters", errs[2].Message)

	assert.True(t, HasTag(errs, "required"))
	assert.False(t, HasTag(errs, "uuid"))
}

func TestStructValid(t *testing.T) {
	assert.Empty(t, Struct(accountForm{FullName: "Jane Doe", Email: "jane@x.com"}))
}

func TestMessages(t *testing.T) {
	errs := []FieldError{{Message: "a"}, {Message: "b"}}
	assert.Equal(t, []string{"a", "b"}, Messages(errs))
}
