package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vec(vals ...float32) []float32 { return vals }

func TestAssign_InsufficientData(t *testing.T) {
	_, _, err := Assign([][]float32{vec(1, 0), vec(0, 1)})
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestAssign_KEqualsNForSmallCorpus(t *testing.T) {
	vectors := [][]float32{vec(1, 0), vec(0, 1), vec(-1, 0)}
	assignment, k, err := Assign(vectors)
	require.NoError(t, err)
	assert.Equal(t, 3, k)
	assert.Len(t, assignment, 3)

	// Three points, three clusters: every cluster gets exactly one member.
	seen := map[int]int{}
	for _, c := range assignment {
		seen[c]++
	}
	assert.Len(t, seen, 3)
}

func TestAssign_KCappedAtFour(t *testing.T) {
	var vectors [][]float32
	for i := 0; i < 10; i++ {
		vectors = append(vectors, vec(float32(i), float32(i%3)))
	}
	assignment, k, err := Assign(vectors)
	require.NoError(t, err)
	assert.Equal(t, 4, k)
	assert.Len(t, assignment, 10)
	for _, c := range assignment {
		assert.GreaterOrEqual(t, c, 0)
		assert.Less(t, c, 4)
	}
}

func TestAssign_Deterministic(t *testing.T) {
	var vectors [][]float32
	for i := 0; i < 12; i++ {
		vectors = append(vectors, vec(float32(i*7%5), float32(i*3%7), float32(i)))
	}

	first, _, err := Assign(vectors)
	require.NoError(t, err)
	second, _, err := Assign(vectors)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAssign_SeparatesObviousGroups(t *testing.T) {
	vectors := [][]float32{
		vec(0, 0), vec(0.1, 0), vec(0, 0.1),
		vec(10, 10), vec(10.1, 10), vec(10, 10.1),
	}
	assignment, _, err := Assign(vectors)
	require.NoError(t, err)

	// The two well-separated groups never share a cluster, even if a tight
	// group splits internally when k exceeds the number of groups.
	near := map[int]bool{}
	for _, c := range assignment[:3] {
		near[c] = true
	}
	for _, c := range assignment[3:] {
		assert.False(t, near[c], "distant groups share cluster %d", c)
	}
}

func TestLabel_TopTwoTokens(t *testing.T) {
	contents := []string{
		"database migration plan for the orders database",
		"run the migration script against the database",
	}
	assert.Equal(t, "Database Migration", Label(contents, 0))
}

func TestLabel_DropsStopWordsAndShortTokens(t *testing.T) {
	contents := []string{"the and for a an it is go"}
	assert.Equal(t, "Topic 2", Label(contents, 2))
}

func TestLabel_Fallback(t *testing.T) {
	assert.Equal(t, "Topic 0", Label([]string{"!!! ??? 123"}, 0))
	assert.Equal(t, "Topic 3", Label(nil, 3))
}

func TestLabel_SingleToken(t *testing.T) {
	assert.Equal(t, "Kubernetes", Label([]string{"kubernetes kubernetes"}, 1))
}
