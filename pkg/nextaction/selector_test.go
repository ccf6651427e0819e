package nextaction

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrisonrobin/nextact/pkg/model"
)

func series(id, due string, tags ...string) model.TaskSeries {
	return model.TaskSeries{
		ID:     id,
		ListID: "list-1",
		Name:   "task " + id,
		Tags:   tags,
		Tasks:  []model.Task{{ID: id + "-t", Due: due}},
	}
}

func ids(cs []Candidate) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Series.ID)
	}
	return out
}

func TestSelect_Scenarios(t *testing.T) {
	tests := []struct {
		name  string
		input []model.TaskSeries
		want  []string
	}{
		{
			name: "earliest calendar date cohort only",
			input: []model.TaskSeries{
				series("A", "2024-01-10T09:00:00Z"),
				series("B", "2024-01-10T17:00:00Z"),
				series("C", "2024-01-11T09:00:00Z"),
			},
			want: []string{"A", "B"},
		},
		{
			name: "tagged undated series follows cohort",
			input: []model.TaskSeries{
				series("A", "2024-01-10T09:00:00Z"),
				series("D", "", DefaultTag),
			},
			want: []string{"A", "D"},
		},
		{
			name: "dated and tagged listed once",
			input: []model.TaskSeries{
				series("A", "2024-01-10T09:00:00Z", DefaultTag),
			},
			want: []string{"A"},
		},
		{
			name:  "empty collection",
			input: nil,
			want:  []string{},
		},
		{
			name: "undated untagged never surfaces",
			input: []model.TaskSeries{
				series("E", ""),
			},
			want: []string{},
		},
		{
			name: "tagged far future still surfaces",
			input: []model.TaskSeries{
				series("F", "2030-06-01T00:00:00Z", DefaultTag),
				series("G", "2024-02-01T00:00:00Z"),
			},
			want: []string{"G", "F"},
		},
		{
			name: "cohort sorted by timestamp regardless of input order",
			input: []model.TaskSeries{
				series("late", "2024-03-05T20:00:00Z"),
				series("early", "2024-03-05T06:00:00Z"),
				series("next-day", "2024-03-06T00:00:00Z"),
			},
			want: []string{"early", "late"},
		},
		{
			name: "tagged keep input order",
			input: []model.TaskSeries{
				series("t2", "2024-05-02T00:00:00Z", DefaultTag),
				series("t1", "", DefaultTag),
				series("x", "2024-05-03T00:00:00Z"),
			},
			want: []string{"t2", "t1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Select(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestSelect_UsesEarliestOccurrence(t *testing.T) {
	recurring := model.TaskSeries{
		ID: "R",
		Tasks: []model.Task{
			{ID: "r1", Due: "2024-01-20T00:00:00Z"},
			{ID: "r2", Due: "2024-01-09T00:00:00Z"},
		},
	}
	other := series("O", "2024-01-10T00:00:00Z")

	got, err := Select([]model.TaskSeries{other, recurring})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "R", got[0].Series.ID)
	assert.True(t, got[0].Dated)
	assert.Equal(t, time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC), got[0].Due)
}

func TestSelect_MalformedDue(t *testing.T) {
	_, err := Select([]model.TaskSeries{
		series("A", "2024-01-10T09:00:00Z"),
		series("B", "10/01/2024"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrMalformedDue))
}

func TestSelect_CustomTagAndLocation(t *testing.T) {
	loc := time.FixedZone("UTC-8", -8*60*60)
	sel := Selector{Tag: "na", Location: loc}

	// 2024-01-11T05:00Z is still Jan 10 at UTC-8.
	got, err := sel.Select([]model.TaskSeries{
		series("A", "2024-01-10T20:00:00Z"),
		series("B", "2024-01-11T05:00:00Z"),
		series("C", "2024-01-11T09:00:00Z", "na"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, ids(got))
	assert.True(t, got[2].Tagged)
}

func TestSelect_Properties(t *testing.T) {
	input := []model.TaskSeries{
		series("a", "2024-04-02T10:00:00Z"),
		series("b", "2024-04-02T08:00:00Z", DefaultTag),
		series("c", "2024-04-03T08:00:00Z"),
		series("d", "", DefaultTag),
		series("e", ""),
		series("f", "2024-04-02T23:59:59Z"),
	}

	first, err := Select(input)
	require.NoError(t, err)
	second, err := Select(input)
	require.NoError(t, err)
	assert.Equal(t, first, second, "selection must be idempotent")

	seen := map[string]bool{}
	for _, c := range first {
		assert.False(t, seen[c.Series.ID], "duplicate %s", c.Series.ID)
		seen[c.Series.ID] = true
	}

	for _, s := range input {
		if s.HasTag(DefaultTag) {
			assert.True(t, seen[s.ID], "tagged %s missing", s.ID)
		}
	}
	assert.False(t, seen["c"], "later untagged series must not surface")
	assert.False(t, seen["e"])
	assert.Equal(t, []string{"a", "f", "b", "d"}, ids(first))
}
