package store

import (
	"errors"
	"testing"

	"github.com/homesphere/homesphere/internal/model"
)

func TestFamilyCreate(t *testing.T) {
	db := newTestDB(t)
	users := NewUserStore(db)
	families := NewFamilyStore(db)

	alice := createTestUser(t, users, "alice")

	family, err := families.Create("Smiths", "abcd1234", alice.ID)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if family.Name != "Smiths" || family.JoinCode != "abcd1234" {
		t.Errorf("family = %+v", family)
	}

	// The creator comes out as the sole admin.
	m, err := families.GetMembership(alice.ID)
	if err != nil || m == nil {
		t.Fatalf("GetMembership = %v, %v", m, err)
	}
	if m.FamilyID != family.ID || m.Role != model.RoleAdmin {
		t.Errorf("membership = %+v", m)
	}

	byCode, err := families.GetByJoinCode("abcd1234")
	if err != nil || byCode == nil || byCode.ID != family.ID {
		t.Fatalf("GetByJoinCode = %v, %v", byCode, err)
	}

	// One family per user, even as creator of a second one.
	if _, err := families.Create("Others", "ffff0000", alice.ID); !errors.Is(err, ErrAlreadyInFamily) {
		t.Errorf("second Create = %v, want ErrAlreadyInFamily", err)
	}
}

func TestFamilyMembership(t *testing.T) {
	db := newTestDB(t)
	users := NewUserStore(db)
	families := NewFamilyStore(db)

	alice := createTestUser(t, users, "alice")
	bob := createTestUser(t, users, "bob")

	family, err := families.Create("Smiths", "abcd1234", alice.ID)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := families.AddMember(family.ID, bob.ID, model.RoleMember); err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	if _, err := families.AddMember(family.ID, bob.ID, model.RoleMember); !errors.Is(err, ErrAlreadyInFamily) {
		t.Errorf("second AddMember = %v, want ErrAlreadyInFamily", err)
	}

	members, err := families.ListMembers(family.ID)
	if err != nil {
		t.Fatalf("ListMembers: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("member count = %d, want 2", len(members))
	}
}

func TestFamilyPromoteDemote(t *testing.T) {
	db := newTestDB(t)
	users := NewUserStore(db)
	families := NewFamilyStore(db)

	alice := createTestUser(t, users, "alice")
	bob := createTestUser(t, users, "bob")
	eve := createTestUser(t, users, "eve")

	family, _ := families.Create("Smiths", "abcd1234", alice.ID)
	families.AddMember(family.ID, bob.ID, model.RoleMember)

	// Sole admin cannot be demoted.
	if err := families.Demote(family.ID, alice.ID); !errors.Is(err, ErrLastAdmin) {
		t.Errorf("Demote sole admin = %v, want ErrLastAdmin", err)
	}

	if err := families.Promote(family.ID, bob.ID); err != nil {
		t.Fatalf("Promote: %v", err)
	}
	m, _ := families.GetMember(family.ID, bob.ID)
	if m.Role != model.RoleAdmin {
		t.Errorf("bob role = %q, want admin", m.Role)
	}

	// Promoting someone who is not a member fails.
	if err := families.Promote(family.ID, eve.ID); !errors.Is(err, ErrNotMember) {
		t.Errorf("Promote non-member = %v, want ErrNotMember", err)
	}

	// With a second admin present the demote goes through.
	if err := families.Demote(family.ID, alice.ID); err != nil {
		t.Fatalf("Demote with two admins: %v", err)
	}
	m, _ = families.GetMember(family.ID, alice.ID)
	if m.Role != model.RoleMember {
		t.Errorf("alice role = %q, want member", m.Role)
	}
}

func TestFamilyRemoveMember(t *testing.T) {
	db := newTestDB(t)
	users := NewUserStore(db)
	families := NewFamilyStore(db)

	alice := createTestUser(t, users, "alice")
	bob := createTestUser(t, users, "bob")

	family, _ := families.Create("Smiths", "abcd1234", alice.ID)
	families.AddMember(family.ID, bob.ID, model.RoleMember)

	// The sole admin cannot be removed while members remain.
	if err := families.RemoveMember(family.ID, alice.ID); !errors.Is(err, ErrLastAdmin) {
		t.Errorf("RemoveMember sole admin = %v, want ErrLastAdmin", err)
	}

	if err := families.RemoveMember(family.ID, bob.ID); err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}
	if m, _ := families.GetMembership(bob.ID); m != nil {
		t.Error("removed member still has a membership")
	}

	if err := families.RemoveMember(family.ID, bob.ID); !errors.Is(err, ErrNotMember) {
		t.Errorf("RemoveMember absent = %v, want ErrNotMember", err)
	}
}

func TestFamilyInvitations(t *testing.T) {
	db := newTestDB(t)
	users := NewUserStore(db)
	families := NewFamilyStore(db)

	alice := createTestUser(t, users, "alice")
	family, _ := families.Create("Smiths", "abcd1234", alice.ID)

	inv, err := families.AddInvitation(family.ID, "bob@example.com", "invite-token")
	if err != nil {
		t.Fatalf("AddInvitation: %v", err)
	}
	if inv.Email != "bob@example.com" || inv.FamilyID != family.ID {
		t.Errorf("invitation = %+v", inv)
	}

	found, err := families.GetInvitationByToken("invite-token")
	if err != nil || found == nil || found.ID != inv.ID {
		t.Fatalf("GetInvitationByToken = %v, %v", found, err)
	}

	list, err := families.ListInvitations(family.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListInvitations = %v, %v", list, err)
	}

	if err := families.DeleteInvitation(inv.ID); err != nil {
		t.Fatalf("DeleteInvitation: %v", err)
	}
	if gone, _ := families.GetInvitationByToken("invite-token"); gone != nil {
		t.Error("deleted invitation still resolves")
	}
}
