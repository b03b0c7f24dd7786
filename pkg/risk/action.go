package risk

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ActionType names an action on the wire and in the action log.
type ActionType string

const (
	ActionReinforce    ActionType = "reinforce"
	ActionAttack       ActionType = "attack"
	ActionFortify      ActionType = "fortify"
	ActionTradeCards   ActionType = "tradeCards"
	ActionAdvancePhase ActionType = "advancePhase"
	ActionEndTurn      ActionType = "endTurn"
)

// ErrUnknownAction is returned by DecodeAction for an unrecognised type.
var ErrUnknownAction = &Error{Kind: KindIllegalMove, Message: "unknown action type"}

// Action is one of the request types below. The set is closed.
type Action interface {
	Type() ActionType
	isAction()
}

type Reinforce struct {
	TerritoryID string `json:"territoryId"`
	Amount      int    `json:"amount"`
}

type Attack struct {
	From string `json:"from"`
	To   string `json:"to"`
	Dice int    `json:"dice"`
}

type Fortify struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount int    `json:"amount"`
}

type TradeCards struct {
	CardIDs []string `json:"cardIds"`
}

type AdvancePhase struct{}

type EndTurn struct{}

func (Reinforce) Type() ActionType    { return ActionReinforce }
func (Attack) Type() ActionType       { return ActionAttack }
func (Fortify) Type() ActionType      { return ActionFortify }
func (TradeCards) Type() ActionType   { return ActionTradeCards }
func (AdvancePhase) Type() ActionType { return ActionAdvancePhase }
func (EndTurn) Type() ActionType      { return ActionEndTurn }

func (Reinforce) isAction()    {}
func (Attack) isAction()       {}
func (Fortify) isAction()      {}
func (TradeCards) isAction()   {}
func (AdvancePhase) isAction() {}
func (EndTurn) isAction()      {}

// DecodeAction parses a JSON payload for the named action type. Unknown
// fields and trailing data are rejected.
func DecodeAction(kind ActionType, raw []byte) (Action, error) {
	switch kind {
	case ActionReinforce:
		var a Reinforce
		if err := decodeStrict(raw, &a); err != nil {
			return nil, err
		}
		return a, nil
	case ActionAttack:
		var a Attack
		if err := decodeStrict(raw, &a); err != nil {
			return nil, err
		}
		return a, nil
	case ActionFortify:
		var a Fortify
		if err := decodeStrict(raw, &a); err != nil {
			return nil, err
		}
		return a, nil
	case ActionTradeCards:
		var a TradeCards
		if err := decodeStrict(raw, &a); err != nil {
			return nil, err
		}
		return a, nil
	case ActionAdvancePhase:
		if err := decodeStrict(raw, &struct{}{}); err != nil {
			return nil, err
		}
		return AdvancePhase{}, nil
	case ActionEndTurn:
		if err := decodeStrict(raw, &struct{}{}); err != nil {
			return nil, err
		}
		return EndTurn{}, nil
	}
	return nil, fmt.Errorf("%q: %w", kind, ErrUnknownAction)
}

func decodeStrict(raw []byte, v any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		raw = []byte("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return illegalMove("malformed payload: %v", err)
	}
	if dec.More() {
		return illegalMove("malformed payload: trailing data")
	}
	return nil
}
