package ratefile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/cohort-api/internal/domain"
)

const sampleFile = `
bases:
  standard:
    death:
      0: 0.001
      1: 0.002
    lapse: [0.05, 0.07]
  prudent:
    death: {0: 0.0012, 1: 0.0024}
    lapse: {0: 0.05, 1: 0.07}
    critical_illness: [0.003, 0.004]
`

func TestParse(t *testing.T) {
	t.Parallel()

	f, err := Parse([]byte(sampleFile))
	require.NoError(t, err)

	assert.Equal(t, []string{"prudent", "standard"}, f.Names())

	tables, err := f.Tables("standard")
	require.NoError(t, err)
	assert.Equal(t, map[domain.Transition]domain.RateTable{
		domain.TransitionDeath: {0: 0.001, 1: 0.002},
		domain.TransitionLapse: {0: 0.05, 1: 0.07},
	}, tables)

	prudent, err := f.Tables("prudent")
	require.NoError(t, err)
	assert.Equal(t, domain.RateTable{0: 0.003, 1: 0.004}, prudent["critical_illness"])
}

func TestBasisIsUsableForProjection(t *testing.T) {
	t.Parallel()

	f, err := Parse([]byte(sampleFile))
	require.NoError(t, err)

	basis, err := f.Basis("standard")
	require.NoError(t, err)
	require.NoError(t, basis.Validate())

	q, ok := basis[domain.TransitionLapse].Rate(1)
	assert.True(t, ok)
	assert.Equal(t, 0.07, q)

	_, err = f.Basis("missing")
	assert.ErrorIs(t, err, ErrInvalidFile)
}

func TestTablesReturnsCopies(t *testing.T) {
	t.Parallel()

	f, err := Parse([]byte(sampleFile))
	require.NoError(t, err)

	tables, err := f.Tables("standard")
	require.NoError(t, err)
	tables[domain.TransitionDeath][0] = 0.5

	again, err := f.Tables("standard")
	require.NoError(t, err)
	assert.Equal(t, 0.001, again[domain.TransitionDeath][0])
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{
			name:    "malformed yaml",
			input:   "bases: [",
			wantErr: "invalid rate file",
		},
		{
			name:    "no bases",
			input:   "bases: {}",
			wantErr: "no bases defined",
		},
		{
			name:    "empty basis",
			input:   "bases:\n  standard: {}",
			wantErr: `basis "standard" has no tables`,
		},
		{
			name:    "maturity table",
			input:   "bases:\n  standard:\n    maturity: [0.1]",
			wantErr: `"maturity" is not a decrement`,
		},
		{
			name:    "empty table",
			input:   "bases:\n  standard:\n    death: []",
			wantErr: `table "death" is empty`,
		},
		{
			name:    "rate above one",
			input:   "bases:\n  standard:\n    death: {0: 1.5}",
			wantErr: "outside [0, 1]",
		},
		{
			name:    "negative rate",
			input:   "bases:\n  standard:\n    death: [-0.1]",
			wantErr: "outside [0, 1]",
		},
		{
			name:    "negative step",
			input:   "bases:\n  standard:\n    death: {-1: 0.1}",
			wantErr: "negative time step -1",
		},
		{
			name:    "non-integer step",
			input:   "bases:\n  standard:\n    death: {one: 0.1}",
			wantErr: `line 3: time step "one" is not an integer`,
		},
		{
			name:    "duplicate step",
			input:   "bases:\n  standard:\n    death: {0: 0.1, 00: 0.2}",
			wantErr: "duplicate time step 0",
		},
		{
			name:    "non-numeric rate",
			input:   "bases:\n  standard:\n    death: [high]",
			wantErr: `rate "high" is not a number`,
		},
		{
			name:    "nested rate",
			input:   "bases:\n  standard:\n    death: [[0.1]]",
			wantErr: "rate must be a number",
		},
		{
			name:    "scalar column",
			input:   "bases:\n  standard:\n    death: 0.1",
			wantErr: "must be a mapping or a sequence",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f, err := Parse([]byte(tt.input))
			assert.Nil(t, f)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidFile)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "bases.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleFile), 0o600))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, f.Bases, 2)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("bases: {}"), 0o600))
	_, err = Load(bad)
	assert.ErrorIs(t, err, ErrInvalidFile)
	assert.Contains(t, err.Error(), bad)
}
