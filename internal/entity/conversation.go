package entity

import "github.com/pailhq/courier/pkg/constant"

// Conversation represents a conversation (direct or group)
type Conversation struct {
	Id        string  `json:"id" gorm:"column:id;primaryKey"`
	Kind      int32   `json:"kind" gorm:"column:kind"`
	Name      string  `json:"name" gorm:"column:name"`
	AvatarURL string  `json:"avatar_url" gorm:"column:avatar_url"`
	CreatorId string  `json:"creator_id" gorm:"column:creator_id"`
	PairKey   *string `json:"-" gorm:"column:pair_key;uniqueIndex"`
	CreatedAt int64   `json:"created_at" gorm:"column:created_at;autoCreateTime:milli"`
	UpdatedAt int64   `json:"updated_at" gorm:"column:updated_at;autoUpdateTime:milli"`
}

// TableName returns the table name for Conversation
func (Conversation) TableName() string {
	return "conversations"
}

// IsDirect checks if the conversation is a two-party direct thread
func (c *Conversation) IsDirect() bool {
	return c.Kind == constant.KindDirect
}

// IsGroup checks if the conversation is a group
func (c *Conversation) IsGroup() bool {
	return c.Kind == constant.KindGroup
}

// HiddenConversation marks a conversation hidden from one user's inbox.
// Hiding is per-viewer state, not deletion; other members are unaffected.
type HiddenConversation struct {
	Id             int64  `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	ConversationId string `json:"conversation_id" gorm:"column:conversation_id;uniqueIndex:idx_hidden_conv_user"`
	UserId         string `json:"user_id" gorm:"column:user_id;uniqueIndex:idx_hidden_conv_user"`
	CreatedAt      int64  `json:"created_at" gorm:"column:created_at;autoCreateTime:milli"`
}

// TableName returns the table name for HiddenConversation
func (HiddenConversation) TableName() string {
	return "hidden_conversations"
}

// ConversationInfo represents conversation info for API response
type ConversationInfo struct {
	Id          string `json:"id"`
	Kind        int32  `json:"kind"`
	Name        string `json:"name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	CreatorId   string `json:"creator_id,omitempty"`
	MemberCount int64  `json:"member_count"`
	CreatedAt   int64  `json:"created_at"`
}

// InboxEntry is one row of the inbox listing
type InboxEntry struct {
	Conversation  *ConversationInfo `json:"conversation"`
	Title         string            `json:"title"`
	IsGroup       bool              `json:"is_group"`
	OtherMemberId string            `json:"other_member_id,omitempty"`
	LatestMessage *MessageInfo      `json:"latest_message,omitempty"`
	UnreadCount   int64             `json:"unread_count"`
}
