package constant

// Conversation kinds
const (
	KindDirect = int32(1) // Two-party conversation, fixed membership
	KindGroup  = int32(2) // Multi-party conversation with a creator and admins
)

// Media kinds
const (
	MediaKindImage   = "image"
	MediaKindVideo   = "video"
	MediaKindGIF     = "gif"
	MediaKindSticker = "sticker"
)

// DirectMemberCount is the fixed membership size of a direct conversation.
// Adding a member beyond this count promotes the conversation to a group.
const DirectMemberCount = 2

// Notification verbs produced by the messaging core
const (
	VerbMentioned    = "mentioned you in group chat"
	VerbAddedToGroup = "added you to a group"
)

// Redis key patterns (without prefix, use the RedisKey getters for full keys)
const (
	redisKeyTyping      = "typing:%s:%s"    // typing:{conversation_id}:{user_id}
	redisKeyUnreadTotal = "unread:total:%s" // unread:total:{user_id}
)

// redisKeyPrefix is the global prefix for all Redis keys
var redisKeyPrefix = "courier:"

// InitRedisKeyPrefix initializes the Redis key prefix from config
func InitRedisKeyPrefix(prefix string) {
	if prefix != "" {
		redisKeyPrefix = prefix
	}
}

// GetRedisKeyPrefix returns the current Redis key prefix
func GetRedisKeyPrefix() string {
	return redisKeyPrefix
}

// Redis key getters with prefix
func RedisKeyTyping() string      { return redisKeyPrefix + redisKeyTyping }
func RedisKeyUnreadTotal() string { return redisKeyPrefix + redisKeyUnreadTotal }
