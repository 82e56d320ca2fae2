package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestEditRequestNormalize(t *testing.T) {
	req := EditRequest{
		Username: strPtr("  Alice "),
		Fullname: strPtr("   "),
		Email:    strPtr(" Alice@Example.COM"),
		Password: strPtr(""),
	}

	req.Normalize()

	require.NotNil(t, req.Username)
	assert.Equal(t, "alice", *req.Username)
	assert.Nil(t, req.Fullname)
	require.NotNil(t, req.Email)
	assert.Equal(t, "alice@example.com", *req.Email)
	assert.Nil(t, req.Password)
	assert.Nil(t, req.RetypePassword)
}

func TestEditRequestNormalizeKeepsPasswordVerbatim(t *testing.T) {
	req := EditRequest{Password: strPtr(" Secret "), RetypePassword: strPtr(" Secret ")}

	req.Normalize()

	assert.Equal(t, " Secret ", *req.Password)
	assert.Equal(t, " Secret ", *req.RetypePassword)
}

func TestSignUpNormalizeAndNew(t *testing.T) {
	req := SignUpRequest{
		Username: " Bob ",
		Fullname: " Bob Builder ",
		Email:    "BOB@example.com ",
		Role:     " Teacher",
	}

	req.Normalize()
	u := NewFromSignUp(req, "hash")

	assert.Equal(t, "bob", u.Username)
	assert.Equal(t, "Bob Builder", u.Fullname)
	assert.Equal(t, "bob@example.com", u.Email)
	assert.Equal(t, RoleTeacher, u.Role)
	assert.Equal(t, "hash", u.PasswordHash)
}

func TestNewFromSignUpKeepsRole(t *testing.T) {
	for _, role := range AllRoles {
		u := NewFromSignUp(SignUpRequest{Username: "x", Email: "x@x.io", Role: role}, "hash")
		assert.Equal(t, role, u.Role)
	}
}

func TestChangesEmpty(t *testing.T) {
	assert.True(t, Changes{}.Empty())
	assert.False(t, Changes{Fullname: strPtr("x")}.Empty())
}

func TestIsValidRole(t *testing.T) {
	assert.True(t, IsValidRole("student"))
	assert.False(t, IsValidRole("owner"))
}
