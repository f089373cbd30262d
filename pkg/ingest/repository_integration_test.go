//go:build integration

package ingest

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicwatch/civicwatch/pkg/db"
	"github.com/civicwatch/civicwatch/pkg/logging"
)

const topicFilterTestMeetingID = int64(990001)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pool, err := db.Connect(ctx, db.ConfigFromEnv())
	require.NoError(t, err, "failed to connect; set DB_* env vars for integration tests")
	t.Cleanup(pool.Close)

	_, err = db.RunMigrations(ctx, pool)
	require.NoError(t, err)
	return pool
}

func cleanupTopicFilterRows(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()
	_, err := pool.Exec(ctx, `DELETE FROM agenda_items WHERE meeting_id = $1`, topicFilterTestMeetingID)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `DELETE FROM meetings WHERE meeting_id = $1`, topicFilterTestMeetingID)
	require.NoError(t, err)
}

func TestAgendaItemsTopicFilter_Integration(t *testing.T) {
	ctx := context.Background()
	pool := setupTestDB(t)
	repo := NewRepository(pool, logging.NewNopLogger())

	cleanupTopicFilterRows(t, ctx, pool)
	defer cleanupTopicFilterRows(t, ctx, pool)

	require.NoError(t, repo.UpsertMeeting(ctx, &Meeting{
		MeetingID: topicFilterTestMeetingID,
		Name:      "City Council Meeting - February 17, 2026",
		Date:      "2026-02-17",
	}))

	stored, err := repo.ReplaceAgendaItems(ctx, topicFilterTestMeetingID, []AgendaItemRecord{
		{ItemKey: "6.17", Section: "New Business", Title: "Rezone request, C-H to PUD",
			Topics: []string{"zoning", "ordinances_general"}},
		{ItemKey: "7.2", Section: "New Business", Title: "FY27 budget amendment",
			Topics: []string{"budget_finance"}},
		{ItemKey: "8.1", Section: "Reports", Title: "City administrator report"},
	})
	require.NoError(t, err)
	require.Len(t, stored, 3)

	// Filter returns exactly the rows whose topic set contains the topic.
	zoningItems, err := repo.AgendaItems(ctx, topicFilterTestMeetingID, "zoning")
	require.NoError(t, err)
	require.Len(t, zoningItems, 1)
	assert.Equal(t, "6.17", zoningItems[0].ItemKey)
	assert.Contains(t, zoningItems[0].Topics, "zoning")

	// A topic present on a different row does not leak empty-topics rows in.
	budgetItems, err := repo.AgendaItems(ctx, topicFilterTestMeetingID, "budget_finance")
	require.NoError(t, err)
	require.Len(t, budgetItems, 1)
	assert.Equal(t, "7.2", budgetItems[0].ItemKey)

	// No match at all.
	none, err := repo.AgendaItems(ctx, topicFilterTestMeetingID, "public_safety")
	require.NoError(t, err)
	assert.Empty(t, none)

	// Empty filter returns every row, including the empty-topics one.
	all, err := repo.AgendaItems(ctx, topicFilterTestMeetingID, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Empty(t, all[2].Topics)
}
