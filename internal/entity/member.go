package entity

// Member represents one user's membership in a conversation.
// Unique per (conversation_id, user_id).
type Member struct {
	Id             int64  `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	ConversationId string `json:"conversation_id" gorm:"column:conversation_id;uniqueIndex:idx_member_conv_user"`
	UserId         string `json:"user_id" gorm:"column:user_id;uniqueIndex:idx_member_conv_user"`
	JoinedAt       int64  `json:"joined_at" gorm:"column:joined_at"`
	// LastReadAt is the group read cursor. Nil means never read; unread
	// accounting then falls back to the conversation creation time.
	LastReadAt *int64 `json:"last_read_at" gorm:"column:last_read_at"`
	IsAdmin    bool   `json:"is_admin" gorm:"column:is_admin"`
	CreatedAt  int64  `json:"created_at" gorm:"column:created_at;autoCreateTime:milli"`
	UpdatedAt  int64  `json:"updated_at" gorm:"column:updated_at;autoUpdateTime:milli"`
}

// TableName returns the table name for Member
func (Member) TableName() string {
	return "members"
}

// ReadCursor returns the effective read cursor given the conversation
// creation time.
func (m *Member) ReadCursor(convCreatedAt int64) int64 {
	if m.LastReadAt != nil {
		return *m.LastReadAt
	}
	return convCreatedAt
}

// MemberInfo represents member info for API response
type MemberInfo struct {
	UserId   string `json:"user_id"`
	JoinedAt int64  `json:"joined_at"`
	IsAdmin  bool   `json:"is_admin"`
}

// ToMemberInfo converts Member to MemberInfo
func (m *Member) ToMemberInfo() *MemberInfo {
	return &MemberInfo{
		UserId:   m.UserId,
		JoinedAt: m.JoinedAt,
		IsAdmin:  m.IsAdmin,
	}
}
