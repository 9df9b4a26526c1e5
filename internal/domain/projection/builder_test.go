package projection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/cohort-api/internal/domain"
	"github.com/phrazzld/cohort-api/internal/domain/valuation"
)

func flat(t *testing.T, rate float64) valuation.FlatRate {
	t.Helper()
	d, err := valuation.NewFlatRate(rate)
	require.NoError(t, err)
	return d
}

func TestBuildConcreteScenario(t *testing.T) {
	t.Parallel()

	table, err := NewDefaultService().Build(testPolicy(2), twoPeriodBasis(), flat(t, 0.02))
	require.NoError(t, err)
	require.Equal(t, 3, table.Len())

	row0, err := table.Row(0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, row0.InForce)
	assert.InDelta(t, 25.0, row0.Claims, 1e-12)
	assert.Equal(t, 100.0, row0.Premiums)
	assert.InDelta(t, 75.0, row0.NetCashflow, 1e-12)

	row1, err := table.Row(1)
	require.NoError(t, err)
	assert.InDelta(t, 0.949, row1.InForce, 1e-15)
	assert.InDelta(t, 94.9, row1.Premiums, 1e-12)
	assert.InDelta(t, 0.949*0.002*25000, row1.Claims, 1e-9)

	row2, err := table.Row(2)
	require.NoError(t, err)
	assert.Equal(t, 0.0, row2.InForce)
	assert.Equal(t, 0.0, row2.Premiums)
	assert.Equal(t, 0.0, row2.Claims)

	summary := table.Summary()
	assert.InDelta(t, 100/1.02+94.9/(1.02*1.02), summary.PVPremiums, 1e-9)
	assert.InDelta(t, 25/1.02+0.949*0.002*25000/(1.02*1.02), summary.PVClaims, 1e-9)
	assert.InDelta(t, summary.PVPremiums-summary.PVClaims-summary.PVExpenses, summary.PVNetCashflow, 1e-9)
	assert.InDelta(t, summary.PVNetCashflow/summary.PVPremiums, summary.Margin, 1e-15)
}

func TestBuildSinglePeriod(t *testing.T) {
	t.Parallel()

	table, err := NewDefaultService().Build(testPolicy(1), twoPeriodBasis(), flat(t, 0.02))
	require.NoError(t, err)
	require.Equal(t, 2, table.Len())

	last, err := table.Row(1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, last.InForce)

	first, err := table.Row(0)
	require.NoError(t, err)
	assert.InDelta(t, 1-0.001-0.05, first.Maturities, 1e-15)
}

func TestBuildMissingRateProducesNoTable(t *testing.T) {
	t.Parallel()

	basis := domain.Basis{
		domain.TransitionDeath: domain.RateTable{0: 0.001},
		domain.TransitionLapse: domain.RateTable{0: 0.05},
	}

	for _, mode := range []Mode{ModeRecursive, ModeIterative} {
		t.Run(string(mode), func(t *testing.T) {
			t.Parallel()

			b := NewBuilder(NewParams(ParamsConfig{Mode: mode}), nil)
			table, err := b.Build(testPolicy(2), basis, flat(t, 0.02))
			assert.Nil(t, table)
			assert.ErrorIs(t, err, domain.ErrMissingRate)
		})
	}
}

func TestBuildConfigurationErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		policy   domain.Policy
		basis    domain.Basis
		discount valuation.DiscountSource
	}{
		{
			name:     "zero term",
			policy:   testPolicy(0),
			basis:    twoPeriodBasis(),
			discount: flat(t, 0.02),
		},
		{
			name:     "negative premium",
			policy:   domain.Policy{Premium: -1, SumAssured: 1000, Term: 2},
			basis:    twoPeriodBasis(),
			discount: flat(t, 0.02),
		},
		{
			name:     "negative sum assured",
			policy:   domain.Policy{Premium: 1, SumAssured: -1000, Term: 2},
			basis:    twoPeriodBasis(),
			discount: flat(t, 0.02),
		},
		{
			name:     "missing lapse table",
			policy:   testPolicy(2),
			basis:    domain.Basis{domain.TransitionDeath: domain.RateTable{0: 0.1, 1: 0.1}},
			discount: flat(t, 0.02),
		},
		{
			name:     "nil discount",
			policy:   testPolicy(2),
			basis:    twoPeriodBasis(),
			discount: nil,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			table, err := NewDefaultService().Build(tc.policy, tc.basis, tc.discount)
			assert.Nil(t, table)
			assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
		})
	}
}

func TestBuildShortDiscountCurveFails(t *testing.T) {
	t.Parallel()

	curve, err := valuation.NewFactorCurve([]float64{0.98})
	require.NoError(t, err)

	table, err := NewDefaultService().Build(testPolicy(2), twoPeriodBasis(), curve)
	assert.Nil(t, table)
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

func TestBuildModesAgree(t *testing.T) {
	t.Parallel()

	const term = 120
	policy := domain.Policy{
		Premium: 1300, SumAssured: 100000, Term: term,
		InitialExpense: 250, RenewalExpense: 12, StartAge: 30,
	}
	basis := gradedBasis(term)
	discount := flat(t, 0.035)

	recursive, err := NewBuilder(NewParams(ParamsConfig{Mode: ModeRecursive}), nil).
		Build(policy, basis, discount)
	require.NoError(t, err)
	iterative, err := NewBuilder(NewParams(ParamsConfig{Mode: ModeIterative}), nil).
		Build(policy, basis, discount)
	require.NoError(t, err)

	assert.Equal(t, ModeRecursive, recursive.Mode())
	assert.Equal(t, ModeIterative, iterative.Mode())
	assert.Equal(t, recursive.Rows(), iterative.Rows())
	assert.Equal(t, recursive.Summary(), iterative.Summary())
}

func TestBuildAutoModeSwitchesOnThreshold(t *testing.T) {
	t.Parallel()

	b := NewBuilder(NewParams(ParamsConfig{IterativeThreshold: 10}), nil)

	short, err := b.Build(testPolicy(10), flatBasis(10, 0.001, 0.02), flat(t, 0.02))
	require.NoError(t, err)
	assert.Equal(t, ModeRecursive, short.Mode())

	long, err := b.Build(testPolicy(11), flatBasis(11, 0.001, 0.02), flat(t, 0.02))
	require.NoError(t, err)
	assert.Equal(t, ModeIterative, long.Mode())

	assert.Positive(t, short.CacheStats().Entries)
	assert.Positive(t, short.CacheStats().Hits)
	assert.Equal(t, CacheStats{}, long.CacheStats())
}

func TestBuildIsIdempotent(t *testing.T) {
	t.Parallel()

	b := NewDefaultService()
	first, err := b.Build(testPolicy(30), gradedBasis(30), flat(t, 0.03))
	require.NoError(t, err)
	second, err := b.Build(testPolicy(30), gradedBasis(30), flat(t, 0.03))
	require.NoError(t, err)

	assert.Equal(t, first.Rows(), second.Rows())
	assert.Equal(t, first.Summary(), second.Summary())
}

func TestBuildExpensePlacement(t *testing.T) {
	t.Parallel()

	policy := domain.Policy{
		Premium: 100, SumAssured: 1000, Term: 3,
		InitialExpense: 50, RenewalExpense: 5,
	}
	basis := flatBasis(3, 0.01, 0.1)

	t.Run("renewal from first anniversary", func(t *testing.T) {
		t.Parallel()

		table, err := NewDefaultService().Build(policy, basis, flat(t, 0))
		require.NoError(t, err)

		expenses, err := table.Column(ColumnExpenses)
		require.NoError(t, err)
		inForce, err := table.Column(ColumnInForce)
		require.NoError(t, err)

		assert.Equal(t, 50.0, expenses[0])
		assert.InDelta(t, inForce[1]*5, expenses[1], 1e-12)
		assert.InDelta(t, inForce[2]*5, expenses[2], 1e-12)
		assert.Equal(t, 0.0, expenses[3])
	})

	t.Run("renewal from inception", func(t *testing.T) {
		t.Parallel()

		params := NewParams(ParamsConfig{RenewalExpenseFromInception: true})
		table, err := NewBuilder(params, nil).Build(policy, basis, flat(t, 0))
		require.NoError(t, err)

		row0, err := table.Row(0)
		require.NoError(t, err)
		assert.Equal(t, 55.0, row0.Expenses)
		assert.InDelta(t, 100-10-55, row0.NetCashflow, 1e-12)
	})
}

func TestBuildZeroPremiumMargin(t *testing.T) {
	t.Parallel()

	policy := domain.Policy{Premium: 0, SumAssured: 1000, Term: 2}
	table, err := NewDefaultService().Build(policy, twoPeriodBasis(), flat(t, 0.02))
	require.NoError(t, err)

	summary := table.Summary()
	assert.Equal(t, 0.0, summary.PVPremiums)
	assert.Equal(t, 0.0, summary.Margin)
	assert.Less(t, summary.PVNetCashflow, 0.0)
}

func TestBuildExtraDecrement(t *testing.T) {
	t.Parallel()

	basis := flatBasis(4, 0.01, 0.05)
	basis["disability"] = domain.RateTable{0: 0.02, 1: 0.02, 2: 0.02, 3: 0.02}

	table, err := NewDefaultService().Build(testPolicy(4), basis, flat(t, 0.02))
	require.NoError(t, err)

	row1, err := table.Row(1)
	require.NoError(t, err)
	require.Contains(t, row1.Decrements, domain.Transition("disability"))
	assert.InDelta(t, row1.InForce*0.02, row1.Decrements["disability"], 1e-15)

	count, err := table.TransitionCount("disability", 1)
	require.NoError(t, err)
	assert.Equal(t, row1.Decrements["disability"], count)
}

func TestTableAccessorsReturnCopies(t *testing.T) {
	t.Parallel()

	basis := flatBasis(3, 0.01, 0.05)
	basis["disability"] = domain.RateTable{0: 0.02, 1: 0.02, 2: 0.02}
	table, err := NewDefaultService().Build(testPolicy(3), basis, flat(t, 0.02))
	require.NoError(t, err)

	rows := table.Rows()
	rows[1].InForce = 42
	rows[1].Decrements["disability"] = 42

	row1, err := table.Row(1)
	require.NoError(t, err)
	assert.NotEqual(t, 42.0, row1.InForce)
	assert.NotEqual(t, 42.0, row1.Decrements["disability"])

	_, err = table.Row(4)
	assert.ErrorIs(t, err, domain.ErrInvalidDomain)

	_, err = table.Column("bogus")
	assert.Error(t, err)

	flows, err := table.Cashflows(ColumnPremiums)
	require.NoError(t, err)
	assert.Len(t, flows, 3)
}

func TestTableDerivesSameCashflows(t *testing.T) {
	t.Parallel()

	policy := testPolicy(6)
	table, err := NewDefaultService().Build(policy, gradedBasis(6), flat(t, 0.02))
	require.NoError(t, err)

	deriver := NewCashflowDeriver(policy, table, nil)
	for step := 0; step <= policy.Term; step++ {
		flows, err := deriver.Flows(step)
		require.NoError(t, err)
		row, err := table.Row(step)
		require.NoError(t, err)
		assert.Equal(t, row.NetCashflow, flows.NetCashflow, "t=%d", step)
	}
}
