package app

import (
	"testing"

	"github.com/agentstation/taxmap/pkg/jurisdiction"
)

// TestApp_New verifies app initialization.
func TestApp_New(t *testing.T) {
	app, err := New("1.0.0", "abc123", "2024-01-01", "test")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if app.Version() != "1.0.0" {
		t.Errorf("Version() = %s, want 1.0.0", app.Version())
	}
	if app.Commit() != "abc123" {
		t.Errorf("Commit() = %s, want abc123", app.Commit())
	}
	if app.Date() != "2024-01-01" {
		t.Errorf("Date() = %s, want 2024-01-01", app.Date())
	}
	if app.BuiltBy() != "test" {
		t.Errorf("BuiltBy() = %s, want test", app.BuiltBy())
	}
	if app.Logger() == nil {
		t.Error("Logger() returned nil")
	}
	if app.Config() == nil {
		t.Error("Config() returned nil")
	}
}

// TestApp_StateTable_Singleton verifies that StateTable() loads once.
func TestApp_StateTable_Singleton(t *testing.T) {
	app, err := New("1.0.0", "test", "2024-01-01", "test")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	t1, err := app.StateTable()
	if err != nil {
		t.Fatalf("StateTable() failed: %v", err)
	}
	t2, err := app.StateTable()
	if err != nil {
		t.Fatalf("StateTable() failed on second call: %v", err)
	}

	if t1 != t2 {
		t.Error("StateTable() returned different instances")
	}
}

// TestApp_StateTable_Default verifies the built-in table is used when no
// path is configured.
func TestApp_StateTable_Default(t *testing.T) {
	app, err := New("1.0.0", "test", "2024-01-01", "test")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	table, err := app.StateTable()
	if err != nil {
		t.Fatalf("StateTable() failed: %v", err)
	}

	code, err := table.Code("Texas")
	if err != nil {
		t.Fatalf("Code(Texas) failed: %v", err)
	}
	if code != "TX" {
		t.Errorf("Code(Texas) = %s, want TX", code)
	}
}

// TestApp_WithStateTable verifies the injection option used by tests.
func TestApp_WithStateTable(t *testing.T) {
	custom := jurisdiction.NewTable("test", map[string]string{"Testland": "TL"})

	app, err := New("1.0.0", "test", "2024-01-01", "test", WithStateTable(custom))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	table, err := app.StateTable()
	if err != nil {
		t.Fatalf("StateTable() failed: %v", err)
	}
	if table != custom {
		t.Error("StateTable() did not return the injected table")
	}
}
