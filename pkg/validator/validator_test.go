package validator

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestValidateMessage(t *testing.T) {
	req := require.New(t)
	recipient := uuid.New()

	req.False(ValidateMessage("hello", recipient, 1000).HasErrors())

	errs := ValidateMessage("", recipient, 1000)
	req.True(errs.HasErrors())
	req.Contains(errs, "text")

	errs = ValidateMessage("   ", recipient, 1000)
	req.True(errs.HasErrors(), "whitespace-only text is empty")

	errs = ValidateMessage("hi", uuid.Nil, 1000)
	req.True(errs.HasErrors())
	req.Contains(errs, "recipient_id")
}

func TestValidateMessageLengthCountsCodePoints(t *testing.T) {
	req := require.New(t)
	recipient := uuid.New()

	// 1000 multibyte runes are within the limit even though the byte
	// count is far larger.
	atLimit := strings.Repeat("é", 1000)
	req.False(ValidateMessage(atLimit, recipient, 1000).HasErrors())

	overLimit := strings.Repeat("é", 1001)
	errs := ValidateMessage(overLimit, recipient, 1000)
	req.True(errs.HasErrors())
	req.Contains(errs, "text")
}

func TestValidateRegister(t *testing.T) {
	req := require.New(t)

	req.False(ValidateRegister("a@example.com", "alice", "Secret123").HasErrors())

	errs := ValidateRegister("not-an-email", "al", "short")
	req.True(errs.HasErrors())
	req.Contains(errs, "email")
	req.Contains(errs, "username")
	req.Contains(errs, "password")
}

func TestValidationErrorsIsError(t *testing.T) {
	req := require.New(t)

	errs := make(ValidationErrors)
	errs.Add("text", "Message text is required")

	var err error = errs
	req.Contains(err.Error(), "text")
}
