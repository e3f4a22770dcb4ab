package user

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_PasswordHashNeverSerialized(t *testing.T) {
	t.Parallel()

	u := User{
		ID:           uuid.New(),
		FirstName:    "A",
		LastName:     "B",
		Email:        "a@b.com",
		PasswordHash: "$2a$12$should-never-leave-the-server",
	}

	data, err := json.Marshal(u)
	require.NoError(t, err)

	assert.NotContains(t, string(data), "should-never-leave-the-server")
	assert.Contains(t, string(data), `"email":"a@b.com"`)
}
