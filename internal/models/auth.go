package models

// LoginRequest defines the structure for login requests
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// RegisterRequest defines the structure for customer registration requests
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// CreateAgentRequest is used by admins to onboard an agent
type CreateAgentRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// ChangeRoleRequest moves an account to another role collection
type ChangeRoleRequest struct {
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role" binding:"required"`
}

// LoginResponse carries the bearer token and the authenticated account
type LoginResponse struct {
	Token   string   `json:"token"`
	Account *Account `json:"account"`
}
