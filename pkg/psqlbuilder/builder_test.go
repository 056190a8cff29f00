package psqlbuilder

import (
	"testing"

	"github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectUsesDollarPlaceholders(t *testing.T) {
	query, args, err := Select("id", "name").
		From("staff").
		Where(squirrel.Eq{"salon_id": 7}).
		Where(squirrel.Eq{"is_active": true}).
		ToSql()

	require.NoError(t, err)
	assert.Equal(t, "SELECT id, name FROM staff WHERE salon_id = $1 AND is_active = $2", query)
	assert.Equal(t, []interface{}{7, true}, args)
}

func TestInsertWithConflictSuffix(t *testing.T) {
	query, args, err := Insert("staff_queue_status").
		Columns("staff_id", "status_date", "estimated_delay_minutes").
		Values(1, "2026-10-19", 18).
		Suffix("ON CONFLICT (staff_id, status_date) DO UPDATE SET estimated_delay_minutes = EXCLUDED.estimated_delay_minutes").
		ToSql()

	require.NoError(t, err)
	assert.Equal(t,
		"INSERT INTO staff_queue_status (staff_id,status_date,estimated_delay_minutes) VALUES ($1,$2,$3) "+
			"ON CONFLICT (staff_id, status_date) DO UPDATE SET estimated_delay_minutes = EXCLUDED.estimated_delay_minutes",
		query)
	assert.Len(t, args, 3)
}

func TestDeleteAndUpdate(t *testing.T) {
	query, _, err := Delete("prediction_accuracy_logs").Where(squirrel.Lt{"created_at": "x"}).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM prediction_accuracy_logs WHERE created_at < $1", query)

	query, _, err = Update("departure_alerts").Set("notification_sent", true).Where(squirrel.Eq{"id": 3}).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "UPDATE departure_alerts SET notification_sent = $1 WHERE id = $2", query)
}
