package config

import (
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUniqueInstance(t *testing.T) {
	a := CreateUniqueInstance("board")
	b := CreateUniqueInstance("board")

	_, err := uuid.FromString(a)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
