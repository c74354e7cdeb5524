package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasEmail(t *testing.T) {
	var none *Identity
	assert.False(t, none.HasEmail())
	assert.False(t, (&Identity{}).HasEmail())
	assert.False(t, (&Identity{Email: " \t "}).HasEmail())
	assert.True(t, (&Identity{Email: "a@x.com"}).HasEmail())
}
