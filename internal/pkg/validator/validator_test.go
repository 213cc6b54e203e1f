package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	Type string `validate:"required,max=16"`
	Size int    `validate:"gte=0"`
}

func TestValidatePasses(t *testing.T) {
	assert.Nil(t, Validate(sample{Type: "Project-Task"}))
}

func TestValidateReportsFields(t *testing.T) {
	errs := Validate(sample{Size: -1})
	assert.Equal(t, "required", errs["Type"])
	assert.Equal(t, "gte", errs["Size"])
}
