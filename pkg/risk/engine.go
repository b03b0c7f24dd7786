package risk

// EventKind labels a notable consequence of an action.
type EventKind string

const (
	EventConquered  EventKind = "conquered"
	EventEliminated EventKind = "eliminated"
	EventWon        EventKind = "won"
	EventCardDrawn  EventKind = "cardDrawn"
	EventTurnPassed EventKind = "turnPassed"
)

// Event is emitted alongside a committed action. Player is the subject,
// Target the territory, card or next player involved.
type Event struct {
	Kind   EventKind `json:"kind"`
	Player string    `json:"player"`
	Target string    `json:"target,omitempty"`
}

// AttackResult is returned to the attacker.
type AttackResult struct {
	CombatResult
	From             string `json:"from"`
	To               string `json:"to"`
	Dice             int    `json:"dice"`
	Conquered        bool   `json:"conquered"`
	EliminatedPlayer string `json:"eliminatedPlayer,omitempty"`
	Winner           string `json:"winner,omitempty"`
}

// TradeResult breaks down the armies granted by a trade.
type TradeResult struct {
	CardIDs        []string `json:"cardIds"`
	SetBonus       int      `json:"setBonus"`
	TerritoryBonus int      `json:"territoryBonus"`
	Total          int      `json:"total"`
	TradeCount     int      `json:"tradeCount"`
}

// Outcome describes what an applied action did.
type Outcome struct {
	Type   ActionType    `json:"type"`
	Action Action        `json:"action"`
	Attack *AttackResult `json:"attack,omitempty"`
	Trade  *TradeResult  `json:"trade,omitempty"`
	Events []Event       `json:"events,omitempty"`
}

// Public returns a copy of o safe to show every player: drawn cards keep
// their holder but lose the card id.
func (o *Outcome) Public() *Outcome {
	pub := *o
	pub.Events = make([]Event, len(o.Events))
	for i, ev := range o.Events {
		if ev.Kind == EventCardDrawn {
			ev.Target = ""
		}
		pub.Events[i] = ev
	}
	return &pub
}

func (o *Outcome) emit(kind EventKind, player, target string) {
	o.Events = append(o.Events, Event{Kind: kind, Player: player, Target: target})
}

// Engine applies actions to match state against a map and a random source.
type Engine struct {
	Map  *Map
	Rand Rand
}

// NewEngine returns an engine on m drawing randomness from rng.
func NewEngine(m *Map, rng Rand) *Engine {
	return &Engine{Map: m, Rand: rng}
}

// Apply validates action for actor against s and returns the resulting state.
// s is never modified. On error the returned state is nil and the error is a
// *Error.
func (e *Engine) Apply(s *MatchState, actor string, action Action) (*MatchState, *Outcome, error) {
	if s == nil {
		return nil, nil, notFound("match not found")
	}
	if action == nil {
		return nil, nil, ErrUnknownAction
	}
	if s.Finished() {
		return nil, nil, illegalPhase("match is finished")
	}
	if s.PlayerIndex(actor) < 0 {
		return nil, nil, notFound("player %s is not in match %s", actor, s.MatchID)
	}
	if cur := s.CurrentPlayer(); cur != actor {
		return nil, nil, illegalTurn("it is %s's turn", cur)
	}

	next := s.Clone()
	out := &Outcome{Type: action.Type(), Action: action}
	var err error
	switch a := action.(type) {
	case Reinforce:
		err = e.reinforce(next, actor, a)
	case Attack:
		out.Attack, err = e.attack(next, actor, a, out)
	case Fortify:
		err = e.fortify(next, actor, a)
	case TradeCards:
		out.Trade, err = e.tradeCards(next, actor, a)
	case AdvancePhase:
		err = e.advancePhase(next)
	case EndTurn:
		err = e.endTurn(next, actor, out)
	default:
		err = ErrUnknownAction
	}
	if err != nil {
		return nil, nil, err
	}
	return next, out, nil
}

func requirePhase(s *MatchState, want Phase) error {
	if s.Phase != want {
		return illegalPhase("action requires %s phase, match is in %s", want, s.Phase)
	}
	return nil
}

func (e *Engine) territory(s *MatchState, id string) (*Territory, error) {
	t, ok := s.Territories[id]
	if !ok || !e.Map.Has(id) {
		return nil, notFound("territory %s not found", id)
	}
	if t.Owner == "" {
		return nil, invariant("territory %s has no owner", id)
	}
	if t.Armies < 1 {
		return nil, invariant("territory %s has %d armies", id, t.Armies)
	}
	return t, nil
}

func (e *Engine) reinforce(s *MatchState, actor string, a Reinforce) error {
	if err := requirePhase(s, PhaseReinforce); err != nil {
		return err
	}
	t, err := e.territory(s, a.TerritoryID)
	if err != nil {
		return err
	}
	if t.Owner != actor {
		return illegalMove("territory %s is not yours", t.ID)
	}
	if a.Amount < 1 {
		return illegalMove("amount must be positive")
	}
	if a.Amount > s.ReinforcementsLeft {
		return illegalMove("only %d reinforcements left", s.ReinforcementsLeft)
	}
	t.Armies += a.Amount
	s.ReinforcementsLeft -= a.Amount
	return nil
}

func (e *Engine) attack(s *MatchState, actor string, a Attack, out *Outcome) (*AttackResult, error) {
	if err := requirePhase(s, PhaseAttack); err != nil {
		return nil, err
	}
	from, err := e.territory(s, a.From)
	if err != nil {
		return nil, err
	}
	to, err := e.territory(s, a.To)
	if err != nil {
		return nil, err
	}
	if from.Owner != actor {
		return nil, illegalMove("territory %s is not yours", from.ID)
	}
	if to.Owner == actor {
		return nil, illegalMove("cannot attack your own territory %s", to.ID)
	}
	if !e.Map.Adjacent(from.ID, to.ID) {
		return nil, illegalMove("%s does not border %s", from.ID, to.ID)
	}
	if limit := MaxAttackDiceFor(from.Armies); a.Dice < 1 || a.Dice > limit {
		return nil, illegalMove("dice must be between 1 and %d", limit)
	}

	combat := ResolveCombat(e.Rand, a.Dice, DefendDice(to.Armies))
	from.Armies -= combat.AttackerLosses
	to.Armies -= combat.DefenderLosses
	res := &AttackResult{CombatResult: combat, From: from.ID, To: to.ID, Dice: a.Dice}
	if to.Armies > 0 {
		return res, nil
	}

	defender := to.Owner
	to.Owner = actor
	to.Armies = a.Dice
	from.Armies -= a.Dice
	if from.Armies < 1 {
		return nil, invariant("%s left with %d armies after conquest", from.ID, from.Armies)
	}
	s.HasConqueredThisTurn = true
	res.Conquered = true
	out.emit(EventConquered, actor, to.ID)

	if !s.IsActive(defender) {
		for i := range s.Cards {
			if s.Cards[i].Owner == defender {
				s.Cards[i].Owner = actor
			}
		}
		res.EliminatedPlayer = defender
		out.emit(EventEliminated, defender, actor)
	}
	if s.TerritoryCount(actor) == len(s.Territories) {
		s.WinnerID = actor
		res.Winner = actor
		out.emit(EventWon, actor, "")
	}
	return res, nil
}

func (e *Engine) fortify(s *MatchState, actor string, a Fortify) error {
	if err := requirePhase(s, PhaseFortify); err != nil {
		return err
	}
	if s.HasFortifiedThisTurn {
		return illegalMove("already fortified this turn")
	}
	from, err := e.territory(s, a.From)
	if err != nil {
		return err
	}
	to, err := e.territory(s, a.To)
	if err != nil {
		return err
	}
	if from.Owner != actor || to.Owner != actor {
		return illegalMove("both territories must be yours")
	}
	if !e.Map.Adjacent(from.ID, to.ID) {
		return illegalMove("%s does not border %s", from.ID, to.ID)
	}
	if a.Amount < 1 {
		return illegalMove("amount must be positive")
	}
	if a.Amount >= from.Armies {
		return illegalMove("must leave at least one army in %s", from.ID)
	}
	from.Armies -= a.Amount
	to.Armies += a.Amount
	s.HasFortifiedThisTurn = true
	return nil
}

func (e *Engine) tradeCards(s *MatchState, actor string, a TradeCards) (*TradeResult, error) {
	if err := requirePhase(s, PhaseReinforce); err != nil {
		return nil, err
	}
	if len(a.CardIDs) != TradeSize {
		return nil, illegalMove("a trade needs exactly %d cards", TradeSize)
	}
	seen := make(map[string]bool, TradeSize)
	idx := make([]int, 0, TradeSize)
	cards := make([]Card, 0, TradeSize)
	for _, id := range a.CardIDs {
		if seen[id] {
			return nil, illegalMove("card %s listed twice", id)
		}
		seen[id] = true
		i := s.cardIndex(id)
		if i < 0 {
			return nil, notFound("card %s not found", id)
		}
		if s.Cards[i].Owner != actor {
			return nil, illegalMove("card %s is not yours", id)
		}
		idx = append(idx, i)
		cards = append(cards, s.Cards[i])
	}
	if !IsValidCombination(symbolsOf(cards)) {
		return nil, illegalMove("cards do not form a valid set")
	}

	res := &TradeResult{
		CardIDs:        append([]string(nil), a.CardIDs...),
		SetBonus:       CardBonus(s.CardTradeCount),
		TerritoryBonus: TerritoryBonus(s, actor, cards),
	}
	res.Total = res.SetBonus + res.TerritoryBonus
	for _, i := range idx {
		s.Cards[i].Owner = ""
	}
	s.CardTradeCount++
	s.ReinforcementsLeft += res.Total
	res.TradeCount = s.CardTradeCount
	return res, nil
}

func (e *Engine) advancePhase(s *MatchState) error {
	switch s.Phase {
	case PhaseReinforce:
		s.Phase = PhaseAttack
	case PhaseAttack:
		s.Phase = PhaseFortify
	case PhaseFortify:
		return illegalPhase("fortify ends with endTurn")
	default:
		return invariant("unknown phase %q", s.Phase)
	}
	return nil
}

func (e *Engine) endTurn(s *MatchState, actor string, out *Outcome) error {
	if s.HasConqueredThisTurn {
		var pool []int
		for i, c := range s.Cards {
			if c.Owner == "" {
				pool = append(pool, i)
			}
		}
		if len(pool) > 0 {
			i := pool[e.Rand.Intn(len(pool))]
			s.Cards[i].Owner = actor
			out.emit(EventCardDrawn, actor, s.Cards[i].ID)
		}
	}

	n := len(s.Players)
	next := -1
	for step := 1; step <= n; step++ {
		i := (s.CurrentPlayerIndex + step) % n
		if s.IsActive(s.Players[i].ID) {
			next = i
			break
		}
	}
	if next < 0 {
		return invariant("no active player left in match %s", s.MatchID)
	}

	s.CurrentPlayerIndex = next
	s.ReinforcementsLeft = CalculateReinforcements(e.Map, s.TerritoriesOf(s.Players[next].ID))
	s.HasConqueredThisTurn = false
	s.HasFortifiedThisTurn = false
	s.TurnNumber++
	s.Phase = PhaseReinforce
	out.emit(EventTurnPassed, actor, s.Players[next].ID)
	return nil
}
