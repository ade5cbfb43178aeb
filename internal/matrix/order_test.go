package matrix

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ethanolivertroy/attack-tui/internal/model"
)

func TestSetTacticOrder(t *testing.T) {
	tr := NewTracker()
	tr.SetTacticOrder([]model.TacticPhase{
		{Tactic: "recon", Phase: "prepare"},
		{Tactic: "initial-access", Phase: "act"},
		{Tactic: "resource-development", Phase: "prepare"},
		{Tactic: "execution", Phase: "act"},
	})

	assert.Equal(t, []string{"recon", "resource-development"}, tr.Prepare())
	assert.Equal(t, []string{"initial-access", "execution"}, tr.Act())
	assert.Equal(t, []string{"recon", "initial-access", "resource-development", "execution"}, tr.Total())
}

func TestSetTacticOrderPhaseMatchIsExact(t *testing.T) {
	tr := NewTracker()
	tr.SetTacticOrder([]model.TacticPhase{
		{Tactic: "a", Phase: "Prepare"},
		{Tactic: "b", Phase: ""},
		{Tactic: "c", Phase: "prepare "},
		{Tactic: "d", Phase: "whatever"},
	})

	assert.Empty(t, tr.Prepare())
	assert.Equal(t, []string{"a", "b", "c", "d"}, tr.Act())
	assert.Equal(t, []string{"a", "b", "c", "d"}, tr.Total())
}

func TestSetTacticOrderAppends(t *testing.T) {
	tr := NewTracker()
	tr.SetTacticOrder([]model.TacticPhase{{Tactic: "a", Phase: "prepare"}})
	tr.SetTacticOrder([]model.TacticPhase{{Tactic: "b", Phase: "act"}})

	assert.Equal(t, []string{"a", "b"}, tr.Total())
	assert.Equal(t, 2, tr.Len())

	tr.Reset()
	assert.Empty(t, tr.Total())
	assert.Empty(t, tr.Prepare())
	assert.Empty(t, tr.Act())
}

func TestTrackerAccessorsReturnCopies(t *testing.T) {
	tr := NewTracker()
	tr.SetTacticOrder([]model.TacticPhase{{Tactic: "a", Phase: "act"}})

	got := tr.Total()
	got[0] = "mutated"
	assert.Equal(t, []string{"a"}, tr.Total())
}

func TestPhaseOf(t *testing.T) {
	tr := NewTracker()
	tr.SetTacticOrder([]model.TacticPhase{
		{Tactic: "recon", Phase: "prepare"},
		{Tactic: "impact", Phase: "act"},
	})

	assert.Equal(t, model.PhasePrepare, tr.PhaseOf("recon"))
	assert.Equal(t, model.PhaseAct, tr.PhaseOf("impact"))
	assert.Equal(t, "", tr.PhaseOf("unknown"))
}

func TestTrackerConcurrentAccess(t *testing.T) {
	tr := NewTracker()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			tr.SetTacticOrder([]model.TacticPhase{{Tactic: "x", Phase: "act"}})
		}()
		go func() {
			defer wg.Done()
			_ = tr.TacticNames([]model.Technique{{Tactics: []string{"x"}}})
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, tr.Len())
}
