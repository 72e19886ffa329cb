package users

// UpdateStatusRequest is the body of POST /users/update-status.
type UpdateStatusRequest struct {
	IDs    []int64 `json:"ids" validate:"required,min=1,dive,gt=0"`
	Status Status  `json:"status" validate:"required,oneof=active blocked"`
}

// DeleteRequest is the body of DELETE /users.
type DeleteRequest struct {
	IDs []int64 `json:"ids" validate:"required,min=1,dive,gt=0"`
}

// BulkResult reports how many ids a bulk operation was asked to change.
type BulkResult struct {
	Requested int
	Affected  int64
}

// MessageResponse is the JSON body returned by bulk endpoints.
type MessageResponse struct {
	Message string `json:"message"`
}
