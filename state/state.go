package state

import (
	"txsentinel-tui/protocol"
)

// Maybe is an explicit optional value
type Maybe[T any] struct {
	value T
	ok    bool
}

// Some wraps a present value
func Some[T any](v T) Maybe[T] { return Maybe[T]{value: v, ok: true} }

// None is the absent value
func None[T any]() Maybe[T] { return Maybe[T]{} }

// Get returns the value and whether it is present
func (m Maybe[T]) Get() (T, bool) { return m.value, m.ok }

// IsSome reports whether a value is present
func (m Maybe[T]) IsSome() bool { return m.ok }

// AppState is the in-memory view of one connected session
type AppState struct {
	Warnings   []protocol.Warning
	BalanceEth Maybe[float64]
}

// Initial is the empty state every session starts from
func Initial() AppState {
	return AppState{Warnings: []protocol.Warning{}, BalanceEth: None[float64]()}
}

// Action is an input to Reduce: ServerMessage or IgnoreWarning
type Action interface {
	isAction()
}

// ServerMessage folds an inbound frame into the state
type ServerMessage struct {
	Message protocol.ServerMessage
}

// IgnoreWarning hides a warning locally without telling the server
type IgnoreWarning struct {
	WarningHash string
}

func (ServerMessage) isAction() {}
func (IgnoreWarning) isAction() {}

// Reduce returns the state after applying a. It never mutates s.
func Reduce(s AppState, a Action) AppState {
	switch a := a.(type) {
	case ServerMessage:
		switch msg := a.Message.(type) {
		case protocol.Warning:
			s.Warnings = upsert(s.Warnings, msg)
		case protocol.BalanceUpdate:
			s.BalanceEth = Some(msg.BalanceEth)
		}
	case IgnoreWarning:
		s.Warnings = remove(s.Warnings, a.WarningHash)
	}
	return s
}

// upsert replaces a warning with the same hash in place, or appends
func upsert(ws []protocol.Warning, w protocol.Warning) []protocol.Warning {
	out := make([]protocol.Warning, len(ws), len(ws)+1)
	copy(out, ws)
	for i := range out {
		if out[i].WarningHash == w.WarningHash {
			out[i] = w
			return out
		}
	}
	return append(out, w)
}

func remove(ws []protocol.Warning, hash string) []protocol.Warning {
	out := make([]protocol.Warning, 0, len(ws))
	for _, w := range ws {
		if w.WarningHash != hash {
			out = append(out, w)
		}
	}
	return out
}

// TxGroup is the set of warnings raised for one transaction
type TxGroup struct {
	TxHash   string
	Warnings []protocol.Warning
}

// GroupByTx groups warnings by transaction, ordered by first appearance
func GroupByTx(ws []protocol.Warning) []TxGroup {
	var groups []TxGroup
	index := make(map[string]int)
	for _, w := range ws {
		i, ok := index[w.TxHash]
		if !ok {
			i = len(groups)
			index[w.TxHash] = i
			groups = append(groups, TxGroup{TxHash: w.TxHash})
		}
		groups[i].Warnings = append(groups[i].Warnings, w)
	}
	return groups
}
