package httpapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateDecideBody(t *testing.T) {
	assert.NoError(t, validateDecideBody(`{"options": [{"id": "a"}]}`))
	assert.NoError(t, validateDecideBody(`{"strategy_id": "", "options": [{"id": "a"}]}`))
	assert.NoError(t, validateDecideBody(`{"strategy_id": "heuristic", "context": {}, "time_limit_ms": 50, "options": [{"id": "a", "impact": {}}]}`))

	assert.EqualError(t, validateDecideBody(`{"options": [{"id": "a", "impact": 1}]}`), "option a impact must be an object")
	assert.EqualError(t, validateDecideBody(`{"options": [{"id": "a"}], "context": []}`), "context must be an object")
}
