package scheduler

import (
	"math/rand"

	"github.com/noah-isme/sma-block-scheduler/internal/models"
)

// TieBreaker chooses one block among equally ranked candidates. Candidates are
// never empty.
type TieBreaker interface {
	Pick(candidates []models.Block) models.Block
}

// RandomTieBreaker picks uniformly at random using an injected source.
type RandomTieBreaker struct {
	rng *rand.Rand
}

// NewRandomTieBreaker wraps rng. A nil rng is seeded with 1.
func NewRandomTieBreaker(rng *rand.Rand) *RandomTieBreaker {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &RandomTieBreaker{rng: rng}
}

// Pick implements TieBreaker.
func (t *RandomTieBreaker) Pick(candidates []models.Block) models.Block {
	if len(candidates) == 1 {
		return candidates[0]
	}
	return candidates[t.rng.Intn(len(candidates))]
}

// FirstTieBreaker always picks the first candidate in block order.
type FirstTieBreaker struct{}

// Pick implements TieBreaker.
func (FirstTieBreaker) Pick(candidates []models.Block) models.Block {
	return candidates[0]
}

// Selection is the outcome of choosing a block for a course.
type Selection struct {
	Block      models.Block
	Candidates []models.Block
	Degraded   bool
}

// SelectBlock scans the course's row of the matrix and picks among the blocks
// with maximum compatibility. When preferConflictFree is set, the candidates are
// first narrowed to those with the fewest recorded conflicts. A course that is
// compatible nowhere falls back to the first enumerated block and the selection
// is flagged as degraded.
func SelectBlock(matrix *ConstraintMatrix, code string, tb TieBreaker, preferConflictFree bool) Selection {
	blocks := matrix.Blocks()
	if len(blocks) == 0 {
		return Selection{Degraded: true}
	}
	if tb == nil {
		tb = FirstTieBreaker{}
	}

	var candidates []models.Block
	for _, block := range blocks {
		if matrix.Compatible(code, block) {
			candidates = append(candidates, block)
		}
	}
	if len(candidates) == 0 {
		return Selection{Block: blocks[0], Degraded: true}
	}

	if preferConflictFree && len(candidates) > 1 {
		fewest := -1
		var narrowed []models.Block
		for _, block := range candidates {
			n := matrix.ConflictCount(code, block)
			switch {
			case fewest < 0 || n < fewest:
				fewest = n
				narrowed = []models.Block{block}
			case n == fewest:
				narrowed = append(narrowed, block)
			}
		}
		candidates = narrowed
	}

	return Selection{Block: tb.Pick(candidates), Candidates: candidates}
}
