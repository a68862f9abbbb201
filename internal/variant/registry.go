package variant

import (
	"sort"

	"github.com/dyluth/huddle/pkg/activity"
)

// Registry maps activity types to their handlers. It is built once and
// read concurrently afterwards.
type Registry struct {
	handlers map[activity.Type]Handler
}

// NewRegistry builds a registry from handlers; a later handler for the
// same type replaces an earlier one.
func NewRegistry(handlers ...Handler) *Registry {
	r := &Registry{handlers: make(map[activity.Type]Handler, len(handlers))}
	for _, h := range handlers {
		r.handlers[h.Type()] = h
	}
	return r
}

// Builtin returns a registry holding every activity type.
func Builtin() *Registry {
	return NewRegistry(
		pollSpec(),
		estimationPokerSpec(),
		brainwritingSpec(),
		leanCoffeeSpec(),
		parkingLotSpec(),
		riskMatrixSpec(),
		daciSpec(),
		romanVotingSpec(),
		fiveWhysSpec(),
		opportunityTreeSpec(),
		impactMappingSpec(),
		jtbdCanvasSpec(),
		kanoModelSpec(),
		futuresWheelSpec(),
		hopesFearsSpec(),
		lotusBlossomSpec(),
		lightningDemosSpec(),
		openSpaceSpec(),
		reframingBoardSpec(),
		vakogBoardSpec(),
		actionItemsSpec(),
	)
}

// Resolve returns the handler for a type, or UnknownActivityType.
func (r *Registry) Resolve(t activity.Type) (Handler, error) {
	h, ok := r.handlers[t]
	if !ok {
		return nil, activity.Errorf(activity.CodeUnknownActivityType, "unknown activity type %q", t)
	}
	return h, nil
}

// Types lists the registered types, sorted.
func (r *Registry) Types() []activity.Type {
	types := make([]activity.Type, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
