package validate

import (
	"testing"

	"github.com/GlebRadaev/orderdesk/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestIsStatus(t *testing.T) {
	for _, s := range []string{
		domain.NewStatus,
		domain.InProgressStatus,
		domain.RevisionStatus,
		domain.ReadyStatus,
		domain.WaitingPaymentStatus,
		domain.SentStatus,
		domain.CancelledStatus,
	} {
		assert.True(t, IsStatus(s), s)
	}

	assert.False(t, IsStatus("PROCESSED"))
	assert.False(t, IsStatus("new"))
	assert.False(t, IsStatus(""))
}
