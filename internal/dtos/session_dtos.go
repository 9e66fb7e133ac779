package dtos

type SessionResponse struct {
	Authenticated bool  `json:"authenticated"`
	CustomerID    int64 `json:"customerId,omitempty"`
}

type SwitchAccountRequest struct {
	CustomerID int64 `json:"customerId" validate:"required"`
}

type LogoutResponse struct {
	Message string `json:"message"`
}

type RefreshTokenResponse struct {
	Message string `json:"message"`
}
