package history

import "time"

type User struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	UserID    string    `gorm:"type:varchar(36);uniqueIndex;not null" json:"user_id"`
	UserName  string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"user_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }

type Conversation struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	ConversationID string    `gorm:"type:varchar(36);uniqueIndex;not null" json:"conversation_id"`
	UserID         string    `gorm:"type:varchar(36);index;not null" json:"user_id"`
	Title          string    `gorm:"type:varchar(255)" json:"title"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (Conversation) TableName() string { return "conversations" }

// Message rows are append-only; the only update permitted is attaching the
// masking metadata after the fact.
type Message struct {
	ID               uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	MessageID        string    `gorm:"type:varchar(36);uniqueIndex;not null" json:"message_id"`
	ConversationID   string    `gorm:"type:varchar(36);index;not null" json:"conversation_id"`
	Role             string    `gorm:"type:varchar(16);not null" json:"role"`
	Content          string    `gorm:"type:text;not null" json:"content"`
	MaskedContent    *string   `gorm:"type:text" json:"masked_content"`
	PIIIdentified    *string   `gorm:"type:text" json:"pii_identified"`
	TokensIdentified *string   `gorm:"type:text" json:"tokens_identified"`
	IsFileData       bool      `json:"is_file_data"`
	CreatedAt        time.Time `json:"created_at"`
}

func (Message) TableName() string { return "messages" }
