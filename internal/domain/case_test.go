package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluationCaseValidate(t *testing.T) {
	tests := []struct {
		name    string
		c       EvaluationCase
		wantErr string
	}{
		{
			name: "prompt case",
			c:    EvaluationCase{Name: "basic", Prompt: "What is 2+2?"},
		},
		{
			name: "trajectory case",
			c: EvaluationCase{
				Name: "multi",
				Turns: []Turn{
					{Role: RoleUser, Content: "Add 1 and 2."},
					{Role: RoleUser, Content: "Double it."},
				},
			},
		},
		{
			name:    "missing name",
			c:       EvaluationCase{Prompt: "hi"},
			wantErr: "Name",
		},
		{
			name:    "both prompt and turns",
			c:       EvaluationCase{Name: "x", Prompt: "hi", Turns: []Turn{{Role: RoleUser, Content: "hi"}}},
			wantErr: "cannot specify both",
		},
		{
			name:    "neither prompt nor turns",
			c:       EvaluationCase{Name: "x"},
			wantErr: "must specify either",
		},
		{
			name:    "threshold out of range",
			c:       EvaluationCase{Name: "x", Prompt: "hi", Threshold: 6},
			wantErr: "Threshold",
		},
		{
			name:    "bad turn role",
			c:       EvaluationCase{Name: "x", Turns: []Turn{{Role: "system", Content: "hi"}}},
			wantErr: "Role",
		},
		{
			name:    "negative timeout",
			c:       EvaluationCase{Name: "x", Prompt: "hi", TimeoutSeconds: -1},
			wantErr: "TimeoutSeconds",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConversationTurns(t *testing.T) {
	t.Run("prompt becomes single user turn", func(t *testing.T) {
		c := EvaluationCase{Name: "x", Prompt: "hello", ExpectedTools: []string{"add"}}
		turns := c.ConversationTurns()
		require.Len(t, turns, 1)
		assert.Equal(t, RoleUser, turns[0].Role)
		assert.Equal(t, "hello", turns[0].Content)
		assert.Equal(t, []string{"add"}, turns[0].ExpectedTools)
		assert.False(t, c.IsTrajectory())
	})

	t.Run("trajectory passes through", func(t *testing.T) {
		turns := []Turn{
			{Role: RoleUser, Content: "a"},
			{Role: RoleAssistant, Content: "b"},
		}
		c := EvaluationCase{Name: "x", Turns: turns}
		assert.Equal(t, turns, c.ConversationTurns())
		assert.True(t, c.IsTrajectory())
	})
}

func TestEffectiveThreshold(t *testing.T) {
	assert.Equal(t, DefaultThreshold, EvaluationCase{}.EffectiveThreshold())
	assert.Equal(t, 4.5, EvaluationCase{Threshold: 4.5}.EffectiveThreshold())
}

func TestEffectiveTimeout(t *testing.T) {
	global := 60 * time.Second
	assert.Equal(t, global, EvaluationCase{}.EffectiveTimeout(global))
	assert.Equal(t, 1500*time.Millisecond, EvaluationCase{TimeoutSeconds: 1.5}.EffectiveTimeout(global))
}

func TestAllExpectedTools(t *testing.T) {
	c := EvaluationCase{
		Name:          "x",
		ExpectedTools: []string{"add", "multiply"},
		Turns: []Turn{
			{Role: RoleUser, Content: "a", ExpectedTools: []string{"add", "divide"}},
			{Role: RoleUser, Content: "b", ExpectedTools: []string{"divide"}},
		},
	}
	assert.Equal(t, []string{"add", "multiply", "divide"}, c.AllExpectedTools())
}
