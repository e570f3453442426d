package fsm

import (
	"context"
	"errors"
	"slices"

	loopfsm "github.com/looplab/fsm"

	"github.com/neomorfeo/vendorhub/internal/domain"
)

// Compile-time check: Validator implements domain.TransitionValidator.
var _ domain.TransitionValidator = (*Validator)(nil)

// vendorEvents holds one looplab EventDesc per (event, destination) pair of
// the vendor table. reset lists all four statuses as sources, including
// active itself.
var vendorEvents = eventDescs(domain.Transitions)

func eventDescs(table []domain.Transition) []loopfsm.EventDesc {
	var descs []loopfsm.EventDesc
	for _, t := range table {
		i := slices.IndexFunc(descs, func(d loopfsm.EventDesc) bool {
			return d.Name == string(t.Event) && d.Dst == string(t.Dst)
		})
		if i < 0 {
			descs = append(descs, loopfsm.EventDesc{Name: string(t.Event), Dst: string(t.Dst)})
			i = len(descs) - 1
		}
		descs[i].Src = append(descs[i].Src, string(t.Src))
	}
	return descs
}

// Validator answers lifecycle questions with a looplab/fsm machine seeded
// from the vendor's stored status. The machine is stateful, so one is built
// per Apply.
type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// Apply returns the status a vendor in current moves to on event, or a
// *domain.TransitionError naming both when the vendor table has no such row.
func (v *Validator) Apply(ctx context.Context, current domain.Status, event domain.Event) (domain.Status, error) {
	machine := loopfsm.NewFSM(string(current), vendorEvents, nil)

	if err := machine.Event(ctx, string(event)); err != nil {
		// A declared self-loop (reset while active) is reported by looplab
		// as NoTransitionError with no wrapped cause.
		var noTransition loopfsm.NoTransitionError
		if errors.As(err, &noTransition) && noTransition.Err == nil {
			return current, nil
		}

		var invalidEvent loopfsm.InvalidEventError
		var unknownEvent loopfsm.UnknownEventError
		if errors.As(err, &invalidEvent) || errors.As(err, &unknownEvent) {
			return "", &domain.TransitionError{
				Event:   event,
				Current: current,
			}
		}
		return "", err
	}

	return domain.Status(machine.Current()), nil
}
