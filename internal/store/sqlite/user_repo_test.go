package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dchat/internal/domain"
)

func TestUserLookups(t *testing.T) {
	users, _ := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, users, "alice")

	got, err := users.GetByUsername(ctx, "alice")
	assert.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)
	assert.Equal(t, "alice@example.com", got.Email)

	_, err = users.GetByUsername(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = users.GetByID(ctx, 9999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSetOnlineStatus(t *testing.T) {
	users, _ := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, users, "alice")

	require.NoError(t, users.SetOnlineStatus(ctx, alice.ID, true, time.Time{}))
	got, err := users.GetByID(ctx, alice.ID)
	assert.NoError(t, err)
	assert.True(t, got.IsOnline)
	assert.Nil(t, got.LastSeen, "going online never writes last_seen")

	lastSeen := time.Date(2026, 8, 28, 15, 0, 0, 0, time.UTC)
	require.NoError(t, users.SetOnlineStatus(ctx, alice.ID, false, lastSeen))
	got, err = users.GetByID(ctx, alice.ID)
	assert.NoError(t, err)
	assert.False(t, got.IsOnline)
	require.NotNil(t, got.LastSeen)
	assert.WithinDuration(t, lastSeen, *got.LastSeen, time.Second)
}

func TestRecentContactsSetSemantics(t *testing.T) {
	users, _ := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, users, "alice")
	bob := createUser(t, users, "bob")
	carol := createUser(t, users, "carol")

	require.NoError(t, users.AddRecentContact(ctx, alice.ID, bob.ID))
	require.NoError(t, users.AddRecentContact(ctx, alice.ID, bob.ID))
	require.NoError(t, users.AddRecentContact(ctx, alice.ID, bob.ID))
	require.NoError(t, users.AddRecentContact(ctx, alice.ID, carol.ID))

	contacts, err := users.ListRecentContacts(ctx, alice.ID)
	assert.NoError(t, err)
	require.Len(t, contacts, 2, "repeated appends never duplicate")
	assert.Equal(t, "bob", contacts[0].Username)
	assert.Equal(t, "carol", contacts[1].Username)

	// Membership is per-user: bob's set is untouched.
	contacts, err = users.ListRecentContacts(ctx, bob.ID)
	assert.NoError(t, err)
	assert.Empty(t, contacts)
}

func TestListOthers(t *testing.T) {
	users, _ := newTestStore(t)
	ctx := context.Background()

	createUser(t, users, "alice")
	createUser(t, users, "bob")
	createUser(t, users, "carol")

	others, err := users.ListOthers(ctx, "alice")
	assert.NoError(t, err)
	require.Len(t, others, 2)
	assert.Equal(t, "bob", others[0].Username)
	assert.Equal(t, "carol", others[1].Username)
}

func TestUpdateProfile(t *testing.T) {
	users, _ := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, users, "alice")

	bio := "hello there"
	pic := "/api/uploads/alice.png"
	alice.Bio = &bio
	alice.ProfilePic = &pic
	require.NoError(t, users.Update(ctx, alice))

	got, err := users.GetByID(ctx, alice.ID)
	assert.NoError(t, err)
	require.NotNil(t, got.Bio)
	assert.Equal(t, bio, *got.Bio)
	require.NotNil(t, got.ProfilePic)
	assert.Equal(t, pic, *got.ProfilePic)
}
