package history

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&User{}, &Conversation{}, &Message{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestCreateUser_IdempotentByEmail(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	if err := repo.CreateUser(ctx, "alice@example.com"); err != nil {
		t.Fatalf("create user: %v", err)
	}
	firstID, err := repo.GetUserID(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("get user id: %v", err)
	}

	if err := repo.CreateUser(ctx, "alice@example.com"); err != nil {
		t.Fatalf("duplicate create should be a no-op, got %v", err)
	}
	secondID, err := repo.GetUserID(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("get user id: %v", err)
	}
	if firstID != secondID {
		t.Fatalf("duplicate create replaced the user: %s != %s", firstID, secondID)
	}
}

func TestGetUserID_UnknownEmail(t *testing.T) {
	repo := NewRepo(openTestDB(t))

	if _, err := repo.GetUserID(context.Background(), "nobody@example.com"); err == nil {
		t.Fatal("expected an error for an unknown email")
	}
}

func TestCreateMessage_BumpsConversation(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	if err := repo.CreateUser(ctx, "alice@example.com"); err != nil {
		t.Fatalf("create user: %v", err)
	}
	userID, _ := repo.GetUserID(ctx, "alice@example.com")
	if err := repo.CreateConversation(ctx, userID, "conv-1", "chat"); err != nil {
		t.Fatalf("create conversation: %v", err)
	}

	before, err := repo.GetConversation(ctx, "conv-1")
	if err != nil {
		t.Fatalf("get conversation: %v", err)
	}

	time.Sleep(10 * time.Millisecond)
	if err := repo.CreateMessage(ctx, &Message{
		ConversationID: "conv-1",
		Role:           "user",
		Content:        "hello",
	}); err != nil {
		t.Fatalf("create message: %v", err)
	}

	after, err := repo.GetConversation(ctx, "conv-1")
	if err != nil {
		t.Fatalf("get conversation: %v", err)
	}
	if !after.UpdatedAt.After(before.UpdatedAt) {
		t.Fatalf("expected updated_at to advance: before=%v after=%v", before.UpdatedAt, after.UpdatedAt)
	}

	msgs, err := repo.ListMessages(ctx, "conv-1")
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].MessageID == "" {
		t.Fatalf("expected one message with a generated id, got %+v", msgs)
	}
}

func TestUpdateMessageMasking(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	msg := &Message{ConversationID: "conv-1", Role: "user", Content: "My SSN is 123-45-6789"}
	if err := repo.CreateMessage(ctx, msg); err != nil {
		t.Fatalf("create message: %v", err)
	}

	err := repo.UpdateMessageMasking(ctx, msg.MessageID,
		"My SSN is <TOKEN-1>", `["123-45-6789"]`, `[{"key":"<TOKEN-1>"}]`)
	if err != nil {
		t.Fatalf("update masking: %v", err)
	}

	msgs, err := repo.ListMessages(ctx, "conv-1")
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	got := msgs[0]
	if got.MaskedContent == nil || *got.MaskedContent != "My SSN is <TOKEN-1>" {
		t.Fatalf("masked content not persisted: %+v", got.MaskedContent)
	}
	if got.PIIIdentified == nil || *got.PIIIdentified != `["123-45-6789"]` {
		t.Fatalf("pii not persisted: %+v", got.PIIIdentified)
	}
	if got.TokensIdentified == nil || *got.TokensIdentified != `[{"key":"<TOKEN-1>"}]` {
		t.Fatalf("tokens not persisted: %+v", got.TokensIdentified)
	}
}

func TestListConversations_MostRecentFirst(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	if err := repo.CreateConversation(ctx, "user-1", "conv-1", "chat"); err != nil {
		t.Fatalf("create conversation: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if err := repo.CreateConversation(ctx, "user-1", "conv-2", "chat"); err != nil {
		t.Fatalf("create conversation: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if err := repo.TouchConversation(ctx, "conv-1"); err != nil {
		t.Fatalf("touch conversation: %v", err)
	}

	convs, err := repo.ListConversations(ctx, "user-1")
	if err != nil {
		t.Fatalf("list conversations: %v", err)
	}
	if len(convs) != 2 || convs[0].ConversationID != "conv-1" {
		t.Fatalf("expected conv-1 first after touch, got %+v", convs)
	}
}

func TestDeleteConversation_RemovesMessages(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	if err := repo.CreateConversation(ctx, "user-1", "conv-1", "chat"); err != nil {
		t.Fatalf("create conversation: %v", err)
	}
	if err := repo.CreateMessage(ctx, &Message{ConversationID: "conv-1", Role: "user", Content: "hi"}); err != nil {
		t.Fatalf("create message: %v", err)
	}

	if err := repo.DeleteConversation(ctx, "conv-1"); err != nil {
		t.Fatalf("delete conversation: %v", err)
	}
	if _, err := repo.GetConversation(ctx, "conv-1"); err == nil {
		t.Fatal("conversation should be gone")
	}
	msgs, err := repo.ListMessages(ctx, "conv-1")
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("messages should be gone, got %d", len(msgs))
	}
}
