package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/chameleon-db/entityview/internal/pgtest"
)

func assertContains(t *testing.T, s, substr string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Errorf("Expected %q to contain %q", s, substr)
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Host != "localhost" {
		t.Errorf("Expected host localhost, got %s", config.Host)
	}
	if config.Port != 5432 {
		t.Errorf("Expected port 5432, got %d", config.Port)
	}
	if config.Database != "entityview" {
		t.Errorf("Expected database entityview, got %s", config.Database)
	}
	if config.MaxConns != 10 {
		t.Errorf("Expected max conns 10, got %d", config.MaxConns)
	}
}

func TestConnectionString(t *testing.T) {
	config := ConnectorConfig{
		Host:     "localhost",
		Port:     5432,
		Database: "entityview",
		User:     "postgres",
		Password: "secret",
	}

	connStr := config.ConnectionString()

	assertContains(t, connStr, "host=localhost")
	assertContains(t, connStr, "port=5432")
	assertContains(t, connStr, "dbname=entityview")
	assertContains(t, connStr, "user=postgres")
	assertContains(t, connStr, "password=secret")
	assertContains(t, connStr, "sslmode=disable")
}

func TestParseConnectionString(t *testing.T) {
	config, err := ParseConnectionString("postgresql://ana:pw@db.internal:6543/shop")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if config.Host != "db.internal" || config.Port != 6543 {
		t.Errorf("Unexpected address %s:%d", config.Host, config.Port)
	}
	if config.Database != "shop" {
		t.Errorf("Expected database shop, got %s", config.Database)
	}
	if config.User != "ana" || config.Password != "pw" {
		t.Errorf("Unexpected credentials %s/%s", config.User, config.Password)
	}
	if config.MaxConns != DefaultConfig().MaxConns {
		t.Error("Pool settings should keep their defaults")
	}
}

func TestParseConnectionString_Defaults(t *testing.T) {
	config, err := ParseConnectionString("postgres://")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if config.Host != "localhost" || config.Port != 5432 || config.Database != "entityview" {
		t.Errorf("Expected defaults, got %+v", config)
	}
}

func TestParseConnectionString_Invalid(t *testing.T) {
	if _, err := ParseConnectionString("mysql://localhost/db"); err == nil {
		t.Error("Expected unsupported scheme error")
	}
	if _, err := ParseConnectionString("postgres://localhost:port/db"); err == nil {
		t.Error("Expected invalid port error")
	}
}

func TestNewConnectorNotConnected(t *testing.T) {
	connector := NewConnector(DefaultConfig())

	if connector.IsConnected() {
		t.Error("New connector should not be connected")
	}
	if connector.Pool() != nil {
		t.Error("Pool should be nil before Connect()")
	}
	if connector.Querier() != nil {
		t.Error("Querier should be nil before Connect()")
	}
	if err := connector.Ping(context.Background()); err == nil {
		t.Error("Ping should fail before Connect()")
	}
}

func TestConnectorWithQuerier(t *testing.T) {
	q := &pgtest.Querier{}
	connector := NewConnectorWithQuerier(q)

	if !connector.IsConnected() {
		t.Error("Connector with a bound querier counts as connected")
	}
	if connector.Querier() != Querier(q) {
		t.Error("Expected the bound querier to be used")
	}

	// Close must leave a caller-owned querier alone
	connector.Close()
	if connector.Querier() != Querier(q) {
		t.Error("Close should not detach the bound querier")
	}
}

func TestConnectorDebugContext(t *testing.T) {
	var nilConnector *Connector
	if nilConnector.DebugContext() == nil {
		t.Fatal("Nil connector should still provide a debug context")
	}

	connector := NewConnector(DefaultConfig())
	connector.SetDebug(nil)
	if connector.DebugContext().Enabled(DebugSQL) {
		t.Error("Nil debug context should fall back to silent")
	}

	dc := &DebugContext{Level: DebugTrace}
	connector.SetDebug(dc)
	if connector.DebugContext() != dc {
		t.Error("Expected installed debug context")
	}
}

func TestRowHelpers(t *testing.T) {
	row := Row{
		"name":  "Ana",
		"age":   int64(25),
		"score": int32(7),
		"email": "ana@mail.com",
	}

	if row.String("name") != "Ana" {
		t.Errorf("Expected Ana, got %s", row.String("name"))
	}
	if row.String("age") != "25" {
		t.Errorf("Expected formatted 25, got %s", row.String("age"))
	}
	if row.Int("age") != 25 {
		t.Errorf("Expected 25, got %d", row.Int("age"))
	}
	if row.Int("score") != 7 {
		t.Errorf("Expected 7, got %d", row.Int("score"))
	}
	if row.String("missing") != "" {
		t.Errorf("Expected empty string for missing field")
	}
	if row.Int("missing") != 0 {
		t.Errorf("Expected 0 for missing field")
	}
}

func TestCollectionRows(t *testing.T) {
	keyed := &CollectionTable{OwnerColumn: "user_id", KeyColumn: "key", ElementColumn: "element"}
	set := &CollectionTable{OwnerColumn: "user_id", ElementColumn: "element"}
	rows := []Row{{"user_id": "u1", "key": "a", "element": int64(1)}}

	got := CollectionRows(rows, keyed)
	if got[0] != (CollectionRow{Owner: "u1", Key: "a", Element: int64(1)}) {
		t.Errorf("Unexpected keyed row %+v", got[0])
	}

	got = CollectionRows(rows, set)
	if got[0].Key != nil {
		t.Errorf("Set rows carry no key, got %v", got[0].Key)
	}
}

func TestEngineNotConnected(t *testing.T) {
	eng := NewEngine(nil)

	if eng.IsConnected() {
		t.Error("New engine should not be connected")
	}
	if err := eng.Ping(context.Background()); err == nil {
		t.Error("Ping should fail without a connector")
	}
}
