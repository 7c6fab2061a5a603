package validation

// RegisterRequest is the payload for POST /api/auth/register
type RegisterRequest struct {
	Username string `json:"username" validate:"required,max=320"`       // login name, usually an email
	Password string `json:"password" validate:"required,min=8,max=72"` // bcrypt input limit
	Role     string `json:"role" validate:"required,role"`             // ADMIN | INSTRUCTOR | STUDENT
}

// LoginRequest is the payload for POST /api/auth/login
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// SubmitRequest is the payload for POST /api/sf/submit
type SubmitRequest struct {
	FullName string  `json:"fullName" validate:"required,max=200"`
	Email    string  `json:"email" validate:"required,email,max=320"`
	Message  *string `json:"message,omitempty" validate:"omitempty,max=4000"` // optional free text
}

// ChangePasswordRequest is the payload for PUT /api/admin/users/:username/password
type ChangePasswordRequest struct {
	Password string `json:"password" validate:"required,min=8,max=72"`
}
