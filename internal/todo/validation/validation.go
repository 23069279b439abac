package validation

import (
	"fmt"
	"strconv"

	"github.com/davrot/todolist/internal/todo"
	"github.com/go-playground/validator/v10"
)

// FieldDescription is the form field name reported in description errors.
const FieldDescription = "description"

// Error is a field-level validation failure shown next to the offending field.
type Error struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Field + ": " + e.Message
}

// Gate checks submitted todos before they are written. The minimum
// description length and the message shown to the user both come from
// minDescription.
type Gate struct {
	minDescription int
	rule           string
	validate       *validator.Validate
}

// NewGate returns a gate enforcing descriptions of at least minDescription
// characters. Values below 1 are raised to 1 so a description is always required.
func NewGate(minDescription int) *Gate {
	if minDescription < 1 {
		minDescription = 1
	}
	return &Gate{
		minDescription: minDescription,
		rule:           "required,min=" + strconv.Itoa(minDescription),
		validate:       validator.New(),
	}
}

// MinDescriptionLength returns the enforced threshold.
func (g *Gate) MinDescriptionLength() int { return g.minDescription }

// DescriptionMessage is the message attached to a too-short description.
func (g *Gate) DescriptionMessage() string {
	return fmt.Sprintf("Enter at least %d characters", g.minDescription)
}

// Validate returns nil or an *Error naming the first invalid field.
func (g *Gate) Validate(t *todo.Todo) error {
	if err := g.validate.Var(t.Description, g.rule); err != nil {
		return &Error{Field: FieldDescription, Message: g.DescriptionMessage()}
	}
	return nil
}
