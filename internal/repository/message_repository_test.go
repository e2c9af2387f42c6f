package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"legalrecords-assistant/internal/model"
	"legalrecords-assistant/internal/testutil"
)

func TestMessageRepository_OrderingAndWindow(t *testing.T) {
	db := testutil.DB(t)
	conversations := NewConversationRepository(db)
	messages := NewMessageRepository(db)
	ctx := context.Background()

	conv := &model.Conversation{UserID: "u1", Title: "t"}
	require.NoError(t, conversations.Create(ctx, conv))

	sameInstant := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	for i, content := range []string{"uno", "dos", "tres", "cuatro"} {
		role := model.RoleUser
		if i%2 == 1 {
			role = model.RoleAssistant
		}
		require.NoError(t, messages.Create(ctx, &model.Message{
			ConversationID: conv.ID,
			Role:           role,
			Content:        content,
			CreatedAt:      sameInstant,
		}))
	}

	all, err := messages.ListByConversationID(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, all, 4)
	for i, want := range []string{"uno", "dos", "tres", "cuatro"} {
		assert.Equal(t, want, all[i].Content)
		assert.Equal(t, uint64(i+1), all[i].Seq)
	}

	recent, err := messages.ListRecentByConversationID(ctx, conv.ID, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "tres", recent[0].Content)
	assert.Equal(t, "cuatro", recent[1].Content)

	reloaded, err := conversations.GetByID(ctx, conv.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.UpdatedAt.Equal(sameInstant))
}

func TestMessageRepository_UpdateAndDelete(t *testing.T) {
	db := testutil.DB(t)
	conversations := NewConversationRepository(db)
	messages := NewMessageRepository(db)
	ctx := context.Background()

	conv := &model.Conversation{UserID: "u1", Title: "t"}
	require.NoError(t, conversations.Create(ctx, conv))
	msg := &model.Message{ConversationID: conv.ID, Role: model.RoleUser, Content: "hola"}
	require.NoError(t, messages.Create(ctx, msg))
	require.NotEmpty(t, msg.ID)

	ok, err := messages.UpdateContent(ctx, msg.ID, "adiós")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := messages.GetByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "adiós", got.Content)

	ok, err = messages.Delete(ctx, msg.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err = messages.GetByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestConversationRepository_DeleteWithMessages(t *testing.T) {
	db := testutil.DB(t)
	conversations := NewConversationRepository(db)
	messages := NewMessageRepository(db)
	ctx := context.Background()

	keep := &model.Conversation{UserID: "u1", Title: "keep"}
	drop := &model.Conversation{UserID: "u1", Title: "drop"}
	require.NoError(t, conversations.Create(ctx, keep))
	require.NoError(t, conversations.Create(ctx, drop))
	require.NoError(t, messages.Create(ctx, &model.Message{ConversationID: keep.ID, Role: model.RoleUser, Content: "a"}))
	require.NoError(t, messages.Create(ctx, &model.Message{ConversationID: drop.ID, Role: model.RoleUser, Content: "b"}))

	ok, err := conversations.DeleteWithMessages(ctx, drop.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	gone, err := messages.ListByConversationID(ctx, drop.ID)
	require.NoError(t, err)
	assert.Empty(t, gone)

	kept, err := messages.ListByConversationID(ctx, keep.ID)
	require.NoError(t, err)
	assert.Len(t, kept, 1)

	list, err := conversations.ListByUserID(ctx, "u1", "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, keep.ID, list[0].ID)
}

func TestMessageRepository_ConcurrentAppendsGetDistinctSeq(t *testing.T) {
	db := testutil.DB(t)
	conversations := NewConversationRepository(db)
	messages := NewMessageRepository(db)
	ctx := context.Background()

	conv := &model.Conversation{UserID: "u1", Title: "t"}
	require.NoError(t, conversations.Create(ctx, conv))

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- messages.Create(ctx, &model.Message{ConversationID: conv.ID, Role: model.RoleUser, Content: "x"})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	all, err := messages.ListByConversationID(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, all, n)
	for i, m := range all {
		assert.Equal(t, uint64(i+1), m.Seq)
	}
}

func TestMessageRepository_CreateRequiresConversation(t *testing.T) {
	db := testutil.DB(t)
	messages := NewMessageRepository(db)

	err := messages.Create(context.Background(), &model.Message{ConversationID: "missing", Role: model.RoleUser, Content: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}
