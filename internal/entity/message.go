package entity

// Message represents a message. A nil ConversationId marks a legacy direct
// message that has not yet been folded into the conversation model; the
// migrator re-parents it using (sender_id, legacy_recipient_id).
type Message struct {
	Id                string  `json:"id" gorm:"column:id;primaryKey"`
	ConversationId    *string `json:"conversation_id" gorm:"column:conversation_id;index"`
	ClientMsgId       string  `json:"client_msg_id" gorm:"column:client_msg_id"`
	SenderId          string  `json:"sender_id" gorm:"column:sender_id"`
	LegacyRecipientId string  `json:"legacy_recipient_id,omitempty" gorm:"column:legacy_recipient_id"`
	Content           string  `json:"content" gorm:"column:content"`
	MediaURL          string  `json:"media_url,omitempty" gorm:"column:media_url"`
	MediaKind         string  `json:"media_kind,omitempty" gorm:"column:media_kind"`
	// LegacyIsRead is meaningful only for unmigrated or direct-conversation
	// messages. Group read state lives on the member cursor instead.
	LegacyIsRead bool  `json:"legacy_is_read" gorm:"column:legacy_is_read"`
	CreatedAt    int64 `json:"created_at" gorm:"column:created_at"`
	UpdatedAt    int64 `json:"updated_at" gorm:"column:updated_at"`
}

// TableName returns the table name for Message
func (Message) TableName() string {
	return "messages"
}

// IsMigrated checks if the message has been parented to a conversation
func (m *Message) IsMigrated() bool {
	return m.ConversationId != nil && *m.ConversationId != ""
}

// MessageInfo represents message info for API response
type MessageInfo struct {
	Id             string `json:"id"`
	ConversationId string `json:"conversation_id"`
	ClientMsgId    string `json:"client_msg_id,omitempty"`
	SenderId       string `json:"sender_id"`
	Content        string `json:"content"`
	MediaURL       string `json:"media_url,omitempty"`
	MediaKind      string `json:"media_kind,omitempty"`
	CreatedAt      int64  `json:"created_at"`
}

// ToMessageInfo converts Message to MessageInfo
func (m *Message) ToMessageInfo() *MessageInfo {
	convId := ""
	if m.ConversationId != nil {
		convId = *m.ConversationId
	}
	return &MessageInfo{
		Id:             m.Id,
		ConversationId: convId,
		ClientMsgId:    m.ClientMsgId,
		SenderId:       m.SenderId,
		Content:        m.Content,
		MediaURL:       m.MediaURL,
		MediaKind:      m.MediaKind,
		CreatedAt:      m.CreatedAt,
	}
}
