package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"maScan/internal/model"
)

func TestFallbackMarkets(t *testing.T) {
	assert.Equal(t, []model.Market{model.MarketSZ, model.MarketSH, model.MarketBJ}, fallbackMarkets(model.MarketSZ))
	assert.Equal(t, []model.Market{model.MarketSH, model.MarketSZ, model.MarketBJ}, fallbackMarkets(model.MarketSH))
	assert.Equal(t, []model.Market{model.MarketBJ, model.MarketSZ, model.MarketSH}, fallbackMarkets(model.MarketBJ))
}

func TestTask_FailureSequence(t *testing.T) {
	tk := newTask(model.Symbol{Code: "600000", Market: model.MarketSH})
	var ids []string
	var states []taskState
	for {
		tk.start()
		ids = append(ids, tk.symbolID())
		st := tk.next(false, 1)
		states = append(states, st)
		if st.terminal() {
			break
		}
	}
	assert.Equal(t, []string{
		"1.600000", "0.600000", "2.600000",
		"1.600000", "0.600000", "2.600000",
	}, ids)
	assert.Equal(t, []taskState{
		stateNeedFallback, stateNeedFallback, stateNeedRetry,
		stateNeedFallback, stateNeedFallback, stateExhausted,
	}, states)
	assert.Equal(t, 1, tk.retry)
}

func TestTask_AttemptsBounded(t *testing.T) {
	for retries := 0; retries <= 4; retries++ {
		tk := newTask(model.Symbol{Code: "000001", Market: model.MarketSZ})
		for {
			tk.start()
			if tk.next(false, retries).terminal() {
				break
			}
		}
		assert.Equal(t, len(model.Markets)*(retries+1), tk.attempts, "retries=%d", retries)
	}
}

func TestTask_SuccessAfterFallback(t *testing.T) {
	tk := newTask(model.Symbol{Code: "830799", Market: model.MarketSZ})
	tk.start()
	assert.Equal(t, stateNeedFallback, tk.next(false, 2))
	tk.start()
	assert.Equal(t, "1.830799", tk.symbolID())
	st := tk.next(true, 2)
	assert.Equal(t, stateSuccess, st)
	assert.True(t, st.terminal())
	assert.Equal(t, "1.830799", tk.symbolID(), "resolved id stays on the venue that answered")
}
