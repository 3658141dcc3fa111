package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsMissingRequiredFields(t *testing.T) {
	_, err := New(Draft{Host: "web1"})
	require.ErrorIs(t, err, ErrInvalidRecord)
	assert.Contains(t, err.Error(), "NotificationType")

	_, err = New(Draft{NotificationType: "PROBLEM", Host: "   "})
	require.ErrorIs(t, err, ErrInvalidRecord)
	assert.Contains(t, err.Error(), "Host")
}

func TestNewKeepsOptionalFields(t *testing.T) {
	r, err := New(Draft{
		NotificationType: " PROBLEM ",
		Host:             "web1",
		HostState:        "UP",
		Service:          "disk",
		ServiceState:     "CRITICAL",
		Msg:              "93% used",
		APIKey:           "app",
		UserKey:          "user",
	})
	require.NoError(t, err)
	assert.Equal(t, "PROBLEM", r.NotificationType)
	assert.Zero(t, r.ID)
	assert.False(t, r.IsSent())
	assert.Equal(t, Destination{APIKey: "app", UserKey: "user"}, r.Destination())
	assert.NoError(t, r.Validate())
}

func TestSummary(t *testing.T) {
	host := Record{NotificationType: "PROBLEM", Host: "web1", HostState: "DOWN", ServiceState: "CRITICAL"}
	assert.Equal(t, "PROBLEM: web1 is DOWN", host.Summary())

	svc := Record{NotificationType: "RECOVERY", Host: "web1", HostState: "UP", Service: "http", ServiceState: "OK"}
	assert.Equal(t, "RECOVERY: http on web1 is OK", svc.Summary())
}
