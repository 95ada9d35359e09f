package validate

import "github.com/GlebRadaev/orderdesk/internal/domain"

var knownStatuses = map[string]struct{}{
	domain.NewStatus:            {},
	domain.InProgressStatus:     {},
	domain.RevisionStatus:       {},
	domain.ReadyStatus:          {},
	domain.WaitingPaymentStatus: {},
	domain.SentStatus:           {},
	domain.CancelledStatus:      {},
}

// IsStatus проверяет, что строка — один из статусов заказа.
func IsStatus(s string) bool {
	_, ok := knownStatuses[s]
	return ok
}
