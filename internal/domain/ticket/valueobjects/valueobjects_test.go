package valueobjects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCategory(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Category
		wantErr bool
	}{
		{name: "armed branch", input: "armed_branch", want: CategoryArmedBranch},
		{name: "informational", input: "informational", want: CategoryInformational},
		{name: "general", input: "general", want: CategoryGeneral},
		{name: "factional mixed case", input: " Factional ", want: CategoryFactional},
		{name: "unknown is not a config key", input: "unknown", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewCategory(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCategoryLabels(t *testing.T) {
	for _, c := range All() {
		assert.Equal(t, c, CategoryFromLabel(c.Label()), c.String())
		assert.NotEmpty(t, c.Emoji())
	}

	assert.Equal(t, CategoryUnknown, CategoryFromLabel("Boh"))
	assert.Equal(t, "Sconosciuta", CategoryUnknown.Label())
	assert.Equal(t, CategoryFactional, CategoryFromLabel("Prossimamente..."))
	assert.Equal(t, CategoryInformational, CategoryFromLabel("  informativa "))
}

func TestCategoryIsOpenable(t *testing.T) {
	assert.True(t, CategoryArmedBranch.IsOpenable())
	assert.True(t, CategoryInformational.IsOpenable())
	assert.True(t, CategoryGeneral.IsOpenable())
	assert.False(t, CategoryFactional.IsOpenable())
	assert.False(t, CategoryUnknown.IsOpenable())
}

func TestStateTransitions(t *testing.T) {
	tests := []struct {
		from State
		to   State
		want bool
	}{
		{StateNone, StateOpen, true},
		{StateOpen, StateClosing, true},
		{StateClosing, StateDeleted, true},
		{StateOpen, StateDeleted, false},
		{StateClosing, StateClosing, false},
		{StateClosing, StateOpen, false},
		{StateDeleted, StateOpen, false},
		{StateNone, StateClosing, false},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}

	assert.False(t, State("active").IsValid())
}
