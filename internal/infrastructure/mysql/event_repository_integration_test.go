//go:build integration

package mysql

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auction-relay/internal/config"
	"auction-relay/internal/domain"
	"auction-relay/pkg/utils"
)

// Run with: MYSQL_TEST_DSN='user:pass@tcp(localhost:3306)/auction_test' go test -tags integration ./internal/infrastructure/mysql
func newIntegrationRepo(t *testing.T) *MySQLEventRepository {
	t.Helper()
	dsn := os.Getenv("MYSQL_TEST_DSN")
	if dsn == "" {
		t.Skip("MYSQL_TEST_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := utils.InitializeMysql(ctx, config.MySQLConfig{
		DSN:             dsn,
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewMySQLEventRepository(db)
	require.NoError(t, repo.EnsureSchema(ctx))
	return repo
}

func TestMySQLEventRepository_SaveAndList(t *testing.T) {
	repo := newIntegrationRepo(t)
	ctx := context.Background()
	auctionID := utils.GenerateID("it-auction")
	t.Cleanup(func() {
		_, _ = repo.db.ExecContext(context.Background(), "DELETE FROM bid_events WHERE auction_id = ?", auctionID)
	})

	created := time.Now().UTC().Truncate(time.Millisecond)
	events := []*domain.ArchivedEvent{
		{
			ID: utils.GenerateID("evt"),
			Message: domain.BidBroadcastMessage{
				Type: domain.BidPlaced, AuctionID: auctionID,
				Data: json.RawMessage(`{"amount":650}`), Timestamp: "2024-03-01T10:00:01.500Z",
			},
			CreatedAt: created,
		},
		{
			// zone-less, sorts before the first one
			ID: utils.GenerateID("evt"),
			Message: domain.BidBroadcastMessage{
				Type: domain.AuctionExtended, AuctionID: auctionID, Timestamp: "2024-03-01T10:00:00",
			},
			CreatedAt: created,
		},
	}
	for _, e := range events {
		require.NoError(t, repo.SaveEvent(ctx, e))
	}

	got, err := repo.ListEvents(ctx, auctionID, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, events[1].ID, got[0].ID)
	assert.Equal(t, "2024-03-01T10:00:00", got[0].Message.Timestamp)
	assert.Empty(t, got[0].Message.Data)

	assert.Equal(t, events[0].ID, got[1].ID)
	assert.Equal(t, domain.BidPlaced, got[1].Message.Type)
	assert.Equal(t, "2024-03-01T10:00:01.500Z", got[1].Message.Timestamp)
	assert.JSONEq(t, `{"amount":650}`, string(got[1].Message.Data))
	assert.True(t, created.Equal(got[1].CreatedAt))

	limited, err := repo.ListEvents(ctx, auctionID, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
