package entity

// Notification is an append-only record produced by the messaging core.
// Failures while appending never fail the operation that triggered them.
type Notification struct {
	Id             int64  `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	UserId         string `json:"user_id" gorm:"column:user_id;index"`
	ActorId        string `json:"actor_id" gorm:"column:actor_id"`
	Verb           string `json:"verb" gorm:"column:verb"`
	ConversationId string `json:"conversation_id,omitempty" gorm:"column:conversation_id"`
	IsRead         bool   `json:"is_read" gorm:"column:is_read"`
	CreatedAt      int64  `json:"created_at" gorm:"column:created_at;autoCreateTime:milli"`
}

// TableName returns the table name for Notification
func (Notification) TableName() string {
	return "notifications"
}
