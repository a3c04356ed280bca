package store

import (
	"testing"
	"time"

	"github.com/homesphere/homesphere/internal/model"
)

// familyFixture sets up alice and bob sharing a family, plus carol outside
// any family.
func familyFixture(t *testing.T) (todos *TodoStore, alice, bob, carol *model.User, familyID int64) {
	t.Helper()
	conn := newTestDB(t)
	users := NewUserStore(conn)
	families := NewFamilyStore(conn)

	alice = createTestUser(t, users, "alice")
	bob = createTestUser(t, users, "bob")
	carol = createTestUser(t, users, "carol")

	family, err := families.Create("Smiths", "abcd1234", alice.ID)
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	if _, err := families.AddMember(family.ID, bob.ID, model.RoleMember); err != nil {
		t.Fatalf("add bob: %v", err)
	}
	return NewTodoStore(conn), alice, bob, carol, family.ID
}

func TestTodoVisibility(t *testing.T) {
	todos, alice, bob, carol, familyID := familyFixture(t)

	private, err := todos.Create("private chore", "", nil, alice.ID, nil, true)
	if err != nil {
		t.Fatalf("create private: %v", err)
	}
	shared, err := todos.Create("shared chore", "", nil, alice.ID, &familyID, false)
	if err != nil {
		t.Fatalf("create shared: %v", err)
	}

	// Creator sees both.
	list, err := todos.ListVisible(alice.ID, familyID)
	if err != nil {
		t.Fatalf("list alice: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("alice sees %d todos, want 2", len(list))
	}

	// A family mate sees only the shared one.
	list, _ = todos.ListVisible(bob.ID, familyID)
	if len(list) != 1 || list[0].ID != shared.ID {
		t.Errorf("bob sees %v, want only shared", list)
	}
	if got, _ := todos.GetVisible(private.ID, bob.ID, familyID); got != nil {
		t.Error("bob can read alice's private todo")
	}

	// Outside the family nothing is visible; family ID zero matches no rows.
	list, _ = todos.ListVisible(carol.ID, 0)
	if len(list) != 0 {
		t.Errorf("carol sees %d todos, want 0", len(list))
	}
}

func TestTodoUpdateScoped(t *testing.T) {
	todos, alice, bob, _, familyID := familyFixture(t)

	private, _ := todos.Create("private", "", nil, alice.ID, nil, true)
	shared, _ := todos.Create("shared", "", nil, alice.ID, &familyID, false)

	// Any family member may update a shared todo.
	due := time.Now().Add(24 * time.Hour)
	updated, err := todos.Update(shared.ID, bob.ID, familyID, "shared", "done by bob", &due, model.TodoStatusCompleted)
	if err != nil {
		t.Fatalf("update shared: %v", err)
	}
	if updated == nil || updated.Status != model.TodoStatusCompleted || updated.DueDate == nil {
		t.Errorf("updated = %+v", updated)
	}

	// Invisible rows behave as absent.
	touched, err := todos.Update(private.ID, bob.ID, familyID, "hax", "", nil, model.TodoStatusPending)
	if err != nil {
		t.Fatalf("update private as bob: %v", err)
	}
	if touched != nil {
		t.Error("bob updated alice's private todo")
	}
	after, _ := todos.GetVisible(private.ID, alice.ID, familyID)
	if after.Title != "private" {
		t.Errorf("private todo changed: %+v", after)
	}
}

func TestTodoDeleteScoped(t *testing.T) {
	todos, alice, bob, _, familyID := familyFixture(t)

	private, _ := todos.Create("private", "", nil, alice.ID, nil, true)

	deleted, err := todos.Delete(private.ID, bob.ID, familyID)
	if err != nil {
		t.Fatalf("delete as bob: %v", err)
	}
	if deleted {
		t.Error("bob deleted alice's private todo")
	}

	deleted, err = todos.Delete(private.ID, alice.ID, familyID)
	if err != nil {
		t.Fatalf("delete as alice: %v", err)
	}
	if !deleted {
		t.Error("alice could not delete her own todo")
	}
}
