package solver

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSolverJSON(t *testing.T) {
	rmsprop, err := NewRMSProp(6.25e-5, 1e-8, 0.99, 1, 5)
	require.NoError(t, err)
	adam, err := NewDefaultAdam(1e-3, 32)
	require.NoError(t, err)
	vanilla, err := NewVanilla(0.1, 1, -1)
	require.NoError(t, err)

	for _, want := range []*Solver{rmsprop, adam, vanilla} {
		data, err := json.Marshal(want)
		require.NoError(t, err)

		var got Solver
		require.NoError(t, json.Unmarshal(data, &got))
		require.Equal(t, want.Type, got.Type)
		require.Equal(t, want.Config, got.Config)
		require.NotNil(t, got.Solver)
	}
}

func TestSolverJSONErrors(t *testing.T) {
	var s Solver
	require.Error(t, json.Unmarshal([]byte(`{"Config": {}}`), &s))
	require.Error(t, json.Unmarshal([]byte(`{"Type": "SGD"}`), &s))
	require.Error(t, json.Unmarshal(
		[]byte(`{"Type": "RMSProp", "Config": {"StepSize": 0, "Batch": 1, "Rho": 0.9}}`),
		&s))
}

func TestValidate(t *testing.T) {
	_, err := NewRMSProp(0, 1e-8, 0.99, 1, -1)
	require.Error(t, err)
	_, err = NewRMSProp(1e-3, 1e-8, 1, 1, -1)
	require.Error(t, err)
	_, err = NewDefaultRMSProp(1e-3, 0)
	require.Error(t, err)
	_, err = NewAdam(1e-3, 1e-8, 1.2, 0.999, 1, -1)
	require.Error(t, err)
	_, err = NewVanilla(-1, 1, -1)
	require.Error(t, err)

	s, err := NewDefaultRMSProp(1e-3, 1)
	require.NoError(t, err)
	require.Equal(t, RMSProp, s.Type)
	require.NoError(t, s.Validate())
}

func TestWithClip(t *testing.T) {
	require.Len(t, withClip(-1), 0)
	require.Len(t, withClip(0), 0)
	require.Len(t, withClip(1), 1)
}
