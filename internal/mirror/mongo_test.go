package mirror

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

// dialTestMongo connects to ELDERAID_TEST_MONGO_URI using a throwaway database.
func dialTestMongo(t *testing.T) *MongoMirror {
	t.Helper()
	uri := os.Getenv("ELDERAID_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("ELDERAID_TEST_MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	m, err := DialMongo(ctx, uri, "elderaid_test_"+uuid.NewString()[:8])
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = m.Database().Drop(ctx)
		_ = m.Close(ctx)
	})
	return m
}

func TestMongoMirrorSetAndUpdate(t *testing.T) {
	m := dialTestMongo(t)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, CollectionDonations, "abc", map[string]any{"status": "to_collect", "quantity": 3}))
	require.NoError(t, m.Update(ctx, CollectionDonations, "abc", map[string]any{"status": "on_the_way"}))

	var doc bson.M
	require.NoError(t, m.Database().Collection(CollectionDonations).FindOne(ctx, bson.M{"_id": "abc"}).Decode(&doc))
	assert.Equal(t, "on_the_way", doc["status"])
	assert.EqualValues(t, 3, doc["quantity"])

	// Set replaces the whole document.
	require.NoError(t, m.Set(ctx, CollectionDonations, "abc", map[string]any{"status": "received"}))
	doc = bson.M{}
	require.NoError(t, m.Database().Collection(CollectionDonations).FindOne(ctx, bson.M{"_id": "abc"}).Decode(&doc))
	assert.NotContains(t, doc, "quantity")
}

func TestMongoMirrorUpdateMissing(t *testing.T) {
	m := dialTestMongo(t)

	err := m.Update(context.Background(), CollectionDonations, "missing", map[string]any{"status": "received"})
	assert.ErrorIs(t, err, ErrDocumentMissing)
}

func TestMongoMirrorDelete(t *testing.T) {
	m := dialTestMongo(t)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, CollectionCampaigns, "9", map[string]any{"name": "Winter"}))
	require.NoError(t, m.Delete(ctx, CollectionCampaigns, "9"))

	n, err := m.Database().Collection(CollectionCampaigns).CountDocuments(ctx, bson.M{"_id": "9"})
	require.NoError(t, err)
	assert.Zero(t, n)
}
