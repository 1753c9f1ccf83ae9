package quest

// State is the serializable daily metadata plus per-player quest maps.
type State struct {
	Date    string
	IDs     []string
	Rewards map[string]int
	Players map[string]PlayerState
}

type PlayerState struct {
	Date      string
	Progress  map[string]int
	Completed map[string]bool
	Claimed   map[string]bool
}

func (e *Engine) Export() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := State{
		Date:    e.daily.date,
		IDs:     append([]string(nil), e.daily.ids...),
		Rewards: map[string]int{},
		Players: map[string]PlayerState{},
	}
	for k, v := range e.daily.rewards {
		s.Rewards[k] = v
	}
	for id, ps := range e.players {
		s.Players[id] = PlayerState{
			Date:      ps.date,
			Progress:  copyIntMap(ps.progress),
			Completed: copyBoolMap(ps.completed),
			Claimed:   copyBoolMap(ps.claimed),
		}
	}
	return s
}

// Import restores persisted state. Quest ids absent from the pool are dropped;
// the next EnsureDailyQuests call fills any resulting shortfall.
func (e *Engine) Import(s State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.daily = dailySet{date: s.Date, rewards: map[string]int{}}
	for _, id := range s.IDs {
		if _, ok := e.pool.ByID[id]; ok {
			e.daily.ids = append(e.daily.ids, id)
		}
	}
	for k, v := range s.Rewards {
		e.daily.rewards[k] = v
	}
	e.players = map[string]*playerState{}
	for id, p := range s.Players {
		ps := newPlayerState(p.Date)
		for k, v := range p.Progress {
			ps.progress[k] = v
		}
		for k, v := range p.Completed {
			ps.completed[k] = v
		}
		for k, v := range p.Claimed {
			ps.claimed[k] = v
		}
		e.players[id] = ps
	}
}

func copyIntMap(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyBoolMap(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
