package integration

import (
	"context"
	"os"
	"testing"

	"github.com/chameleon-db/entityview/pkg/engine"
	"github.com/chameleon-db/entityview/pkg/engine/mutation"
)

// testDatabaseURL points at a disposable PostgreSQL database.
const testDatabaseURL = "ENTITYVIEW_TEST_DATABASE_URL"

const collectionDDL = `
DROP TABLE IF EXISTS user_scores;
DROP TABLE IF EXISTS user_tags;
DROP TABLE IF EXISTS users;
CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT);
CREATE TABLE user_scores (
	user_id INTEGER NOT NULL REFERENCES users(id),
	key TEXT NOT NULL,
	element TEXT,
	PRIMARY KEY (user_id, key)
);
CREATE TABLE user_tags (
	user_id INTEGER NOT NULL REFERENCES users(id),
	element TEXT NOT NULL
);
INSERT INTO users (id, name) VALUES (1, 'ann'), (2, 'bob');
`

func skipIfNoDatabase(t *testing.T) string {
	t.Helper()
	url := os.Getenv(testDatabaseURL)
	if url == "" {
		t.Skipf("%s not set", testDatabaseURL)
	}
	return url
}

func testSchema() *engine.Schema {
	return &engine.Schema{
		Entities: []*engine.Entity{
			{
				Name: "User",
				Fields: map[string]*engine.Field{
					"id":   {Name: "id", Type: engine.FieldTypeInt, PrimaryKey: true},
					"name": {Name: "name", Type: engine.FieldTypeString},
				},
				Relations: map[string]*engine.Relation{
					"scores": {Name: "scores", Kind: engine.RelationMap},
					"tags":   {Name: "tags", Kind: engine.RelationElementCollection},
				},
			},
		},
	}
}

// setupTestDB connects an engine to a freshly created set of tables.
func setupTestDB(t *testing.T) (*engine.Engine, context.Context, func()) {
	t.Helper()
	url := skipIfNoDatabase(t)
	ctx := context.Background()

	cfg, err := engine.ParseConnectionString(url)
	if err != nil {
		t.Fatalf("invalid %s: %v", testDatabaseURL, err)
	}

	eng := engine.NewEngine(testSchema())
	mutation.InitFactory(eng)
	if err := eng.Connect(ctx, cfg); err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	if _, err := eng.Connector().Pool().Exec(ctx, collectionDDL); err != nil {
		eng.Close()
		t.Fatalf("failed to create tables: %v", err)
	}

	return eng, ctx, eng.Close
}
