package inventory

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// RegisterMovementFromRequest adapta el request HTTP al caso de uso RegisterMovement(ctx, MovementInput).
// userID proviene del token y se registra como recordedBy.
func (uc *RegisterMovementUseCase) RegisterMovementFromRequest(ctx context.Context, userID string, in dto.RegisterMovementRequest) (*entity.Transaction, error) {
	input := MovementInput{
		Kind:         in.Kind,
		ProductID:    in.ProductID,
		Quantity:     in.Quantity,
		LineValue:    in.LineValue,
		Counterparty: in.Counterparty,
		RecordedBy:   userID,
	}
	return uc.RegisterMovement(ctx, input)
}
