package domain

// Interaction is a positive engagement (a like) of a user with a post.
type Interaction struct {
	UserID int64 `json:"user_id"`
	ItemID int64 `json:"post_id"`
}
