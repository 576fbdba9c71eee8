package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newSequenceDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&Sequence{}))
	return db
}

func TestNextIDPadsAndIncrements(t *testing.T) {
	db := newSequenceDB(t)

	id, err := NextID(db, PrefixBooking)
	require.NoError(t, err)
	assert.Equal(t, "BKG-000001", id)

	id, err = NextID(db, PrefixBooking)
	require.NoError(t, err)
	assert.Equal(t, "BKG-000002", id)
}

func TestNextIDIsolatesPrefixes(t *testing.T) {
	db := newSequenceDB(t)

	for i := 0; i < 3; i++ {
		_, err := NextID(db, PrefixInvoice)
		require.NoError(t, err)
	}
	id, err := NextID(db, PrefixContract)
	require.NoError(t, err)
	assert.Equal(t, "CTR-000001", id, "each prefix counts independently")

	id, err = NextID(db, PrefixInvoice)
	require.NoError(t, err)
	assert.Equal(t, "INV-000004", id)
}

func TestNextIDSurvivesRollback(t *testing.T) {
	db := newSequenceDB(t)

	err := db.Transaction(func(tx *gorm.DB) error {
		id, err := NextID(tx, PrefixCase)
		require.NoError(t, err)
		assert.Equal(t, "RC-000001", id)
		return gorm.ErrInvalidTransaction
	})
	require.Error(t, err)

	// A rolled-back increment is reissued.
	id, err := NextID(db, PrefixCase)
	require.NoError(t, err)
	assert.Equal(t, "RC-000001", id)
}
