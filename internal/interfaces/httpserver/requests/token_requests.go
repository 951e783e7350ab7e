package requests

// EnableTokenRequest carries the secret returned at issuance.
type EnableTokenRequest struct {
	Secret string `json:"secret" binding:"required"`
}
