package service

import (
	"fmt"

	"cardpayout/internal/domain"
)

func outcomeMessage(p *domain.Payout) string {
	switch domain.Classify(p.Status) {
	case domain.ClassSuccess:
		return fmt.Sprintf("Payout of %s %s to %s completed. Tx: %s", p.Amount.String(), p.Currency, p.MaskedDestination, deref(p.BankTxID))
	case domain.ClassFailed:
		return fmt.Sprintf("Payout of %s %s to %s failed: %s", p.Amount.String(), p.Currency, p.MaskedDestination, deref(p.Error))
	default:
		return fmt.Sprintf("Payout of %s %s to %s accepted, status: %s. We will notify you when it changes.", p.Amount.String(), p.Currency, p.MaskedDestination, p.Status)
	}
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
