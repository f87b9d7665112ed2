package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfile_RoundTripKeepsVariant(t *testing.T) {
	in := StudentProfile{BuildingNo: "25", SchoolName: "Central High", Grade: "10", Section: "B"}

	data, err := MarshalProfile(in)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"role":"student"`)

	out, err := UnmarshalProfile(data)
	require.NoError(t, err)
	assert.Equal(t, RoleStudent, out.Role())
	assert.Equal(t, in, out)
	assert.Equal(t, "25", out.HomeBuilding())
}

func TestUnmarshalProfile_Errors(t *testing.T) {
	_, err := UnmarshalProfile([]byte(`{"role":"janitor"}`))
	assert.Error(t, err)

	_, err = UnmarshalProfile([]byte(`not json`))
	assert.Error(t, err)
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("responder")
	require.NoError(t, err)
	assert.True(t, r.CanResolve())
	assert.True(t, r.SeesAllAlerts())

	r, err = ParseRole("staff")
	require.NoError(t, err)
	assert.False(t, r.CanResolve())
}
