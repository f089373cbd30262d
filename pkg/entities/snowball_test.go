package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAliasSetResolvesBareSurname(t *testing.T) {
	set := NewAliasSet()
	set.Seed("Jane Smith", "jane smith")

	matches := set.Resolve("Smith seconded the motion.")
	require.Len(t, matches, 1)
	assert.Equal(t, "smith", matches[0].Alias)
	assert.Equal(t, "jane smith", matches[0].Person.NormalizedValue)
	assert.InDelta(t, AliasConfidence, matches[0].Confidence, 0.001)
}

func TestAliasSetUnseededSurnameResolvesNothing(t *testing.T) {
	set := NewAliasSet()
	assert.Empty(t, set.Resolve("Smith seconded the motion."))
}

func TestAliasSetAmbiguousSurnameWithdrawn(t *testing.T) {
	set := NewAliasSet()
	set.Seed("Jane Smith", "jane smith")
	set.Seed("Robert Smith", "robert smith")

	// Two people share the surname; a bare "Smith" is no longer safe to
	// bind to either, while full names still resolve.
	matches := set.Resolve("Smith asked a question.")
	assert.Empty(t, matches)

	matches = set.Resolve("Jane Smith asked a question.")
	require.Len(t, matches, 1)
	assert.Equal(t, "jane smith", matches[0].Person.NormalizedValue)
}

func TestAliasSetAmbiguousSurnameStaysWithdrawn(t *testing.T) {
	set := NewAliasSet()
	set.Seed("Jane Smith", "jane smith")
	set.Seed("Robert Smith", "robert smith")
	set.Seed("Jane Smith", "jane smith")

	assert.Empty(t, set.Resolve("Smith asked a question."))
}

func TestAliasSetReseedingSamePersonIsStable(t *testing.T) {
	set := NewAliasSet()
	set.Seed("Jane Smith", "jane smith")
	set.Seed("Jane Smith", "jane smith")

	matches := set.Resolve("Smith moved approval.")
	require.Len(t, matches, 1)
}

func TestAliasSetSingleTokenNameHasNoSurnameAlias(t *testing.T) {
	set := NewAliasSet()
	set.Seed("Cher", "cher")

	assert.Empty(t, set.Resolve("The surname Smith appears here."))
	matches := set.Resolve("Cher presented the award.")
	require.Len(t, matches, 1)
	assert.Equal(t, "cher", matches[0].Alias)
}

func TestAliasSetShortSurnameSkipped(t *testing.T) {
	set := NewAliasSet()
	set.Seed("Jane Wu", "jane wu")

	assert.Empty(t, set.Resolve("Wu seconded."))
	matches := set.Resolve("Jane Wu seconded.")
	require.Len(t, matches, 1)
}

func TestAliasSetAliasesForEntity(t *testing.T) {
	set := NewAliasSet()
	set.Seed("Jane Smith", "jane smith")
	set.Seed("Robert Jones", "robert jones")

	assert.Equal(t, []string{"jane smith", "smith"}, set.Aliases("jane smith"))
	assert.Equal(t, []string{"robert jones", "jones"}, set.Aliases("robert jones"))
	assert.Empty(t, set.Aliases("nobody"))
}

func TestAliasSetWordBoundaryMatching(t *testing.T) {
	set := NewAliasSet()
	set.Seed("Jane Smith", "jane smith")

	assert.Empty(t, set.Resolve("The blacksmith shop on Main Street."))
	assert.Empty(t, set.Resolve("Smithfield Foods presented."))
}
