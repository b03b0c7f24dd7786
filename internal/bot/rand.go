package bot

import (
	"sync"

	"github.com/freeeve/conquest/api/pkg/risk"
)

// botRng is the package-level random source used by all bot strategies.
// Use SeedBotRng to set a deterministic source for reproducible arena runs.
var (
	botRngMu sync.RWMutex
	botRng   = risk.NewTimeRand()
)

// SeedBotRng sets a deterministic random source for reproducible bot behavior.
func SeedBotRng(seed uint64) {
	botRngMu.Lock()
	botRng = risk.NewSeededRand(seed)
	botRngMu.Unlock()
}

// ResetBotRng reverts to a wall-clock seeded source.
func ResetBotRng() {
	botRngMu.Lock()
	botRng = risk.NewTimeRand()
	botRngMu.Unlock()
}

func currentRng() risk.Rand {
	botRngMu.RLock()
	defer botRngMu.RUnlock()
	return botRng
}

func botIntn(n int) int {
	return currentRng().Intn(n)
}
