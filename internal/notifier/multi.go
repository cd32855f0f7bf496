package notifier

import (
	"context"
	"errors"

	"github.com/amishk599/c2cradar/internal/model"
)

// Ensure Multi implements model.Notifier.
var _ model.Notifier = Multi(nil)

// Multi delivers to every notifier in order. The delivery fails if any
// notifier fails; the others are still attempted.
type Multi []model.Notifier

func (m Multi) Deliver(ctx context.Context, d model.Delivery) error {
	var errs []error
	for _, n := range m {
		if err := n.Deliver(ctx, d); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
