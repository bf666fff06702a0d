package dto

type TurnEventRequest struct {
	DiscussionID int64  `json:"discussion_id" binding:"required"`
	TurnIndex    int    `json:"turn_index"`
	Message      string `json:"message"`
	ActorName    string `json:"actor_name"`
}

type TurnEventResponse struct {
	Enqueued bool `json:"enqueued"`
}
