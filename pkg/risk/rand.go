package risk

import (
	"sync"
	"time"

	"golang.org/x/exp/rand"
)

// Rand is the random source consumed by the engine. Intn returns a uniform
// value in [0, n) and panics if n <= 0.
type Rand interface {
	Intn(n int) int
}

type seededRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewSeededRand returns a goroutine-safe PCG source. Two sources built from
// the same seed produce the same stream, which makes matches replayable.
func NewSeededRand(seed uint64) Rand {
	return &seededRand{r: rand.New(rand.NewSource(seed))}
}

// NewTimeRand seeds a source from the wall clock.
func NewTimeRand() Rand {
	return NewSeededRand(uint64(time.Now().UnixNano()))
}

func (s *seededRand) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Intn(n)
}

// ScriptedRand replays a fixed sequence of values, each reduced modulo the
// requested bound. Once exhausted it returns 0.
type ScriptedRand struct {
	mu     sync.Mutex
	values []int
	pos    int
}

// NewScriptedRand returns a source that yields values in order.
func NewScriptedRand(values ...int) *ScriptedRand {
	return &ScriptedRand{values: values}
}

// Dice returns a scripted source whose successive die rolls are faces (1..6).
func Dice(faces ...int) *ScriptedRand {
	vals := make([]int, len(faces))
	for i, f := range faces {
		vals[i] = f - 1
	}
	return &ScriptedRand{values: vals}
}

func (s *ScriptedRand) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 {
		panic("risk: Intn bound must be positive")
	}
	if s.pos >= len(s.values) {
		return 0
	}
	v := s.values[s.pos] % n
	s.pos++
	if v < 0 {
		v += n
	}
	return v
}

// Remaining reports how many scripted values have not been consumed.
func (s *ScriptedRand) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values) - s.pos
}

func shuffle(rng Rand, n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		swap(i, j)
	}
}
