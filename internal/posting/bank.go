package posting

import (
	"context"

	internalshared "github.com/odyssey-erp/odyssey-gl/internal/shared"
)

// PostBankMatch matches one bank transaction to accountCode through the
// bank matching engine.
func (s *Service) PostBankMatch(ctx context.Context, actor internalshared.Actor, bankTxID int64, accountCode string) (Result, error) {
	if err := actor.Validate(); err != nil {
		return Result{}, err
	}
	match, err := s.bank.ManualMatch(ctx, actor, bankTxID, accountCode)
	res := Result{JournalID: match.JournalID}
	// ManualMatch audits the match itself.
	if s.recorder != nil {
		outcome := outcomePosted
		if err != nil {
			outcome = outcomeFailed
		}
		s.recorder.RecordPosting(KindBankMatch, outcome)
	}
	if err != nil {
		return Result{}, err
	}
	return res, nil
}
