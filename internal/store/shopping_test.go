package store

import (
	"testing"

	"github.com/homesphere/homesphere/internal/model"
)

func shoppingFixture(t *testing.T) (items *ShoppingStore, alice, bob *model.User, familyID int64) {
	t.Helper()
	conn := newTestDB(t)
	users := NewUserStore(conn)
	families := NewFamilyStore(conn)

	alice = createTestUser(t, users, "alice")
	bob = createTestUser(t, users, "bob")

	family, err := families.Create("Smiths", "abcd1234", alice.ID)
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	if _, err := families.AddMember(family.ID, bob.ID, model.RoleMember); err != nil {
		t.Fatalf("add bob: %v", err)
	}
	return NewShoppingStore(conn), alice, bob, family.ID
}

func TestShoppingVisibility(t *testing.T) {
	items, alice, bob, familyID := shoppingFixture(t)

	if _, err := items.Create("milk", 2, "l", "", alice.ID, nil, true); err != nil {
		t.Fatalf("create private: %v", err)
	}
	shared, err := items.Create("bread", 1, "amount", "whole grain", alice.ID, &familyID, false)
	if err != nil {
		t.Fatalf("create shared: %v", err)
	}

	list, err := items.ListVisible(bob.ID, familyID)
	if err != nil {
		t.Fatalf("list bob: %v", err)
	}
	if len(list) != 1 || list[0].ID != shared.ID {
		t.Errorf("bob sees %v, want only shared", list)
	}

	list, _ = items.ListVisible(alice.ID, familyID)
	if len(list) != 2 {
		t.Errorf("alice sees %d items, want 2", len(list))
	}
}

func TestShoppingToggleChecked(t *testing.T) {
	items, alice, bob, familyID := shoppingFixture(t)

	shared, _ := items.Create("bread", 1, "amount", "", alice.ID, &familyID, false)

	toggled, err := items.ToggleChecked(shared.ID, bob.ID, familyID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !toggled.IsChecked {
		t.Error("item not checked after toggle")
	}

	toggled, _ = items.ToggleChecked(shared.ID, bob.ID, familyID)
	if toggled.IsChecked {
		t.Error("item still checked after second toggle")
	}

	private, _ := items.Create("milk", 1, "l", "", alice.ID, nil, true)
	if got, _ := items.ToggleChecked(private.ID, bob.ID, familyID); got != nil {
		t.Error("bob toggled alice's private item")
	}
}

func TestShoppingClearChecked(t *testing.T) {
	items, alice, bob, familyID := shoppingFixture(t)

	a, _ := items.Create("bread", 1, "amount", "", alice.ID, &familyID, false)
	items.Create("eggs", 12, "amount", "", alice.ID, &familyID, false)
	alicePrivate, _ := items.Create("milk", 1, "l", "", alice.ID, nil, true)

	items.ToggleChecked(a.ID, alice.ID, familyID)
	items.ToggleChecked(alicePrivate.ID, alice.ID, familyID)

	// Bob's clear reaches the shared checked item but not alice's private one.
	cleared, err := items.ClearChecked(bob.ID, familyID)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if cleared != 1 {
		t.Errorf("cleared = %d, want 1", cleared)
	}

	remaining, _ := items.ListVisible(alice.ID, familyID)
	if len(remaining) != 2 {
		t.Errorf("alice sees %d items after clear, want 2", len(remaining))
	}

	cleared, _ = items.ClearChecked(alice.ID, familyID)
	if cleared != 1 {
		t.Errorf("alice cleared = %d, want 1", cleared)
	}
}
