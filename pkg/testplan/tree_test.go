package testplan

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stefanpenner/testpulse/pkg/telemetry"
)

func sampleSuites() []telemetry.Suite {
	return []telemetry.Suite{
		{ID: "1", Name: "Plan"},
		{ID: "2", Name: "Checkout", ParentID: "1"},
		{ID: "3", Name: "Payments", ParentID: "2"},
		{ID: "4", Name: "Search", ParentID: "1"},
		{ID: "5", Name: "Orphan", ParentID: "99"},
	}
}

func TestBuildTree(t *testing.T) {
	t.Parallel()

	tree := BuildTree(sampleSuites())
	assert.Equal(t, []string{"1", "5"}, tree.Roots())
	assert.Equal(t, []string{"1", "2", "3", "4"}, tree.Descendants("1"))
	assert.Equal(t, []string{"2", "3"}, tree.Descendants("2"))
	assert.Equal(t, []string{"Plan", "Checkout", "Payments"}, tree.Path("3"))
	assert.Nil(t, tree.Descendants("missing"))

	suite, ok := tree.Lookup("4")
	require.True(t, ok)
	assert.Equal(t, "Search", suite.Name)
}

func TestDescendantsTerminatesOnCycles(t *testing.T) {
	t.Parallel()

	tree := BuildTree([]telemetry.Suite{
		{ID: "a", ParentID: "c"},
		{ID: "b", ParentID: "a"},
		{ID: "c", ParentID: "b"},
		{ID: "self", ParentID: "self"},
	})
	assert.Equal(t, []string{"a", "b", "c"}, tree.Descendants("b"))
	assert.Len(t, tree.Path("a"), 3)
	assert.Equal(t, []string{"self"}, tree.Descendants("self"))
}

type fakeSource struct {
	suites []telemetry.Suite
	cases  map[string][]telemetry.SuiteCase
	err    error
}

func (f fakeSource) FetchPlanSuites(context.Context, string) ([]telemetry.Suite, error) {
	return f.suites, f.err
}

func (f fakeSource) FetchSuiteCases(_ context.Context, _, suiteID string) ([]telemetry.SuiteCase, error) {
	return f.cases[suiteID], nil
}

func TestCollectCases(t *testing.T) {
	t.Parallel()

	src := fakeSource{
		suites: sampleSuites(),
		cases: map[string][]telemetry.SuiteCase{
			"2": {{SuiteID: "2", TestCaseID: "200"}, {SuiteID: "2", TestCaseID: "100"}},
			"3": {{SuiteID: "3", TestCaseID: "100"}, {SuiteID: "3", TestCaseID: "300"}, {SuiteID: "3"}},
			"4": {{SuiteID: "4", TestCaseID: "400"}},
		},
	}

	got, err := CollectCases(context.Background(), src, "p", "2")
	require.NoError(t, err)
	assert.Equal(t, []string{"100", "200", "300"}, got)

	_, err = CollectCases(context.Background(), src, "p", "nope")
	assert.True(t, errors.Is(err, ErrSuiteNotFound))

	boom := errors.New("boom")
	_, err = CollectCases(context.Background(), fakeSource{err: boom}, "p", "2")
	assert.ErrorIs(t, err, boom)
}
