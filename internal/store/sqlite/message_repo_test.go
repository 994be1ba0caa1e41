package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dchat/internal/domain"
)

func newTestStore(t *testing.T) (*UserRepo, *MessageRepo) {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, Migrate(db))

	return NewUserRepo(db), NewMessageRepo(db)
}

func createUser(t *testing.T, users *UserRepo, username string) *domain.User {
	t.Helper()

	u := &domain.User{
		Username:       username,
		Email:          username + "@example.com",
		HashedPassword: "hashed",
		IsVerified:     true,
	}
	require.NoError(t, users.Create(context.Background(), u))
	return u
}

func createMessage(t *testing.T, msgs *MessageRepo, senderID, receiverID int64, content string, at time.Time) *domain.Message {
	t.Helper()

	m := &domain.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		CreatedAt:  at,
	}
	require.NoError(t, msgs.Create(context.Background(), m))
	return m
}

func TestMarkReadIdempotent(t *testing.T) {
	users, msgs := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, users, "alice")
	bob := createUser(t, users, "bob")

	base := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	m1 := createMessage(t, msgs, alice.ID, bob.ID, "one", base)
	m2 := createMessage(t, msgs, alice.ID, bob.ID, "two", base.Add(time.Minute))
	createMessage(t, msgs, bob.ID, alice.ID, "reply", base.Add(2*time.Minute))

	ids, err := msgs.MarkRead(ctx, alice.ID, bob.ID, base.Add(3*time.Minute))
	assert.NoError(t, err)
	assert.ElementsMatch(t, []int64{m1.ID, m2.ID}, ids, "only alice→bob traffic is promoted")

	ids, err = msgs.MarkRead(ctx, alice.ID, bob.ID, base.Add(4*time.Minute))
	assert.NoError(t, err)
	assert.Empty(t, ids, "a second pass promotes nothing")

	got, err := msgs.GetByID(ctx, m1.ID)
	assert.NoError(t, err)
	assert.True(t, got.Read)
	assert.NotNil(t, got.ReadAt)
}

func TestMarkReadConcurrent(t *testing.T) {
	users, msgs := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, users, "alice")
	bob := createUser(t, users, "bob")

	base := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	const total = 20
	for i := 0; i < total; i++ {
		createMessage(t, msgs, alice.ID, bob.ID, "msg", base.Add(time.Duration(i)*time.Second))
	}

	// The REST mark-read call and the socket conversation-opened event can
	// fire for the same pair at the same time.
	const callers = 8
	results := make([][]int64, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids, err := msgs.MarkRead(ctx, alice.ID, bob.ID, base.Add(time.Hour))
			assert.NoError(t, err)
			results[i] = ids
		}(i)
	}
	wg.Wait()

	var promoted []int64
	for _, ids := range results {
		promoted = append(promoted, ids...)
	}
	assert.Len(t, promoted, total, "each message promoted by exactly one caller")

	ids, err := msgs.MarkRead(ctx, alice.ID, bob.ID, base.Add(2*time.Hour))
	assert.NoError(t, err)
	assert.Empty(t, ids)
}

func TestMarkReadPromotesDelivered(t *testing.T) {
	users, msgs := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, users, "alice")
	bob := createUser(t, users, "bob")

	base := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	deliveredAt := base.Add(time.Minute)

	queued := createMessage(t, msgs, alice.ID, bob.ID, "queued", base)
	delivered := &domain.Message{
		SenderID:    alice.ID,
		ReceiverID:  bob.ID,
		Content:     "already delivered",
		Delivered:   true,
		DeliveredAt: &deliveredAt,
		CreatedAt:   base,
	}
	require.NoError(t, msgs.Create(ctx, delivered))

	readAt := base.Add(time.Hour)
	_, err := msgs.MarkRead(ctx, alice.ID, bob.ID, readAt)
	assert.NoError(t, err)

	got, err := msgs.GetByID(ctx, queued.ID)
	assert.NoError(t, err)
	assert.True(t, got.Delivered, "read implies delivered")
	require.NotNil(t, got.DeliveredAt)
	assert.WithinDuration(t, readAt, *got.DeliveredAt, time.Second)

	got, err = msgs.GetByID(ctx, delivered.ID)
	assert.NoError(t, err)
	require.NotNil(t, got.DeliveredAt)
	assert.WithinDuration(t, deliveredAt, *got.DeliveredAt, time.Second,
		"an existing delivery timestamp is never rewritten")
}

func TestMarkDeliveredExactlyOnce(t *testing.T) {
	users, msgs := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, users, "alice")
	bob := createUser(t, users, "bob")
	carol := createUser(t, users, "carol")

	base := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	m1 := createMessage(t, msgs, alice.ID, bob.ID, "from alice", base)
	m2 := createMessage(t, msgs, carol.ID, bob.ID, "from carol", base.Add(time.Minute))
	createMessage(t, msgs, bob.ID, alice.ID, "outbound", base.Add(2*time.Minute))

	promoted, err := msgs.MarkDelivered(ctx, bob.ID, base.Add(3*time.Minute))
	assert.NoError(t, err)
	assert.ElementsMatch(t, []domain.DeliveredMessage{
		{MessageID: m1.ID, SenderID: alice.ID},
		{MessageID: m2.ID, SenderID: carol.ID},
	}, promoted)

	promoted, err = msgs.MarkDelivered(ctx, bob.ID, base.Add(4*time.Minute))
	assert.NoError(t, err)
	assert.Empty(t, promoted, "the reconnect scan never re-promotes")

	got, err := msgs.GetByID(ctx, m1.ID)
	assert.NoError(t, err)
	assert.True(t, got.Delivered)
	assert.False(t, got.Read, "delivery never touches the read flag")
}

func TestUnreadCounts(t *testing.T) {
	users, msgs := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, users, "alice")
	bob := createUser(t, users, "bob")
	carol := createUser(t, users, "carol")

	base := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	createMessage(t, msgs, alice.ID, bob.ID, "a1", base)
	createMessage(t, msgs, alice.ID, bob.ID, "a2", base.Add(time.Minute))
	createMessage(t, msgs, carol.ID, bob.ID, "c1", base.Add(2*time.Minute))
	createMessage(t, msgs, bob.ID, alice.ID, "outbound", base.Add(3*time.Minute))

	counts, err := msgs.UnreadCounts(ctx, bob.ID)
	assert.NoError(t, err)
	assert.Equal(t, map[int64]int{alice.ID: 2, carol.ID: 1}, counts)

	_, err = msgs.MarkRead(ctx, alice.ID, bob.ID, base.Add(4*time.Minute))
	require.NoError(t, err)

	counts, err = msgs.UnreadCounts(ctx, bob.ID)
	assert.NoError(t, err)
	assert.Equal(t, map[int64]int{carol.ID: 1}, counts)
}

func TestLastReadID(t *testing.T) {
	users, msgs := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, users, "alice")
	bob := createUser(t, users, "bob")

	id, err := msgs.LastReadID(ctx, alice.ID, bob.ID)
	assert.NoError(t, err)
	assert.Zero(t, id, "no read messages yet")

	base := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	createMessage(t, msgs, alice.ID, bob.ID, "one", base)
	m2 := createMessage(t, msgs, alice.ID, bob.ID, "two", base.Add(time.Minute))

	_, err = msgs.MarkRead(ctx, alice.ID, bob.ID, base.Add(2*time.Minute))
	require.NoError(t, err)

	createMessage(t, msgs, alice.ID, bob.ID, "unread", base.Add(3*time.Minute))

	id, err = msgs.LastReadID(ctx, alice.ID, bob.ID)
	assert.NoError(t, err)
	assert.Equal(t, m2.ID, id)
}

func TestListChatSummaries(t *testing.T) {
	users, msgs := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, users, "alice")
	bob := createUser(t, users, "bob")
	carol := createUser(t, users, "carol")

	base := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	createMessage(t, msgs, alice.ID, bob.ID, "hi bob", base)
	createMessage(t, msgs, bob.ID, alice.ID, "hi alice", base.Add(time.Minute))
	createMessage(t, msgs, carol.ID, alice.ID, "hey", base.Add(2*time.Minute))

	summaries, err := msgs.ListChatSummaries(ctx, alice.ID)
	assert.NoError(t, err)
	require.Len(t, summaries, 2)

	// Most recent conversation first, each with its latest message.
	assert.Equal(t, carol.ID, summaries[0].ContactID)
	assert.Equal(t, "carol", summaries[0].Contact)
	assert.Equal(t, "hey", summaries[0].LastMessage)
	assert.Equal(t, bob.ID, summaries[1].ContactID)
	assert.Equal(t, "hi alice", summaries[1].LastMessage)

	// New traffic with bob moves that chat back to the top.
	createMessage(t, msgs, alice.ID, bob.ID, "still there?", base.Add(3*time.Minute))

	summaries, err = msgs.ListChatSummaries(ctx, alice.ID)
	assert.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, bob.ID, summaries[0].ContactID)
	assert.Equal(t, "still there?", summaries[0].LastMessage)
}
