package history

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// CreateUser inserts a user keyed by email, ignoring duplicates.
func (r *Repo) CreateUser(ctx context.Context, email string) error {
	u := &User{
		UserID:   uuid.NewString(),
		UserName: email,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_name"}}, DoNothing: true}).
		Create(u).Error
}

func (r *Repo) GetUserID(ctx context.Context, email string) (string, error) {
	var u User
	if err := r.db.WithContext(ctx).
		Where("user_name = ?", email).
		First(&u).Error; err != nil {
		return "", err
	}
	return u.UserID, nil
}

// TouchUser bumps the user's interaction timestamp.
func (r *Repo) TouchUser(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).Model(&User{}).
		Where("user_id = ?", userID).
		Update("updated_at", time.Now()).Error
}

func (r *Repo) CreateConversation(ctx context.Context, userID, conversationID, title string) error {
	c := &Conversation{
		ConversationID: conversationID,
		UserID:         userID,
		Title:          title,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "conversation_id"}}, DoNothing: true}).
		Create(c).Error
}

func (r *Repo) GetConversation(ctx context.Context, conversationID string) (*Conversation, error) {
	var c Conversation
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// ListConversations returns the user's conversations, most recently updated first.
func (r *Repo) ListConversations(ctx context.Context, userID string) ([]Conversation, error) {
	var convs []Conversation
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&convs).Error; err != nil {
		return nil, err
	}
	return convs, nil
}

// TouchConversation bumps updated_at; called on every message insert.
func (r *Repo) TouchConversation(ctx context.Context, conversationID string) error {
	return r.db.WithContext(ctx).Model(&Conversation{}).
		Where("conversation_id = ?", conversationID).
		Update("updated_at", time.Now()).Error
}

// CreateMessage appends a message, ignoring duplicate message ids, and bumps
// the parent conversation.
func (r *Repo) CreateMessage(ctx context.Context, m *Message) error {
	if m.MessageID == "" {
		m.MessageID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "message_id"}}, DoNothing: true}).
		Create(m).Error; err != nil {
		return err
	}
	return r.TouchConversation(ctx, m.ConversationID)
}

// UpdateMessageMasking attaches masking metadata to an existing message.
func (r *Repo) UpdateMessageMasking(ctx context.Context, messageID, maskedContent, piiIdentified, tokensIdentified string) error {
	return r.db.WithContext(ctx).Model(&Message{}).
		Where("message_id = ?", messageID).
		Updates(map[string]any{
			"masked_content":    maskedContent,
			"pii_identified":    piiIdentified,
			"tokens_identified": tokensIdentified,
		}).Error
}

// ListMessages returns a conversation's messages oldest first.
func (r *Repo) ListMessages(ctx context.Context, conversationID string) ([]Message, error) {
	var msgs []Message
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *Repo) DeleteMessages(ctx context.Context, conversationID string) error {
	return r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Delete(&Message{}).Error
}

func (r *Repo) DeleteConversation(ctx context.Context, conversationID string) error {
	if err := r.DeleteMessages(ctx, conversationID); err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Delete(&Conversation{}).Error
}
