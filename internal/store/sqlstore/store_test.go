package sqlstore

import (
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pdutta/courier/internal/models"
)

var testStore *SQLStore

func SetupTestDB(t *testing.T) {
	var err error
	testStore, err = New("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
}

func TeardownTestDB() {
	testStore.db.Close()
}

// seedUser creates a user with a fixed id for readable assertions.
func seedUser(t *testing.T, id, username string) {
	t.Helper()
	if err := testStore.CreateUser(&models.User{ID: id, Username: username}); err != nil {
		t.Fatalf("Failed to seed user %s: %v", username, err)
	}
}
