package dto

type RegisterRequestDTO struct {
	Email        string `json:"email" validate:"required,email,max=254" example:"player@betwise.io"`
	Password     string `json:"password" validate:"required,min=8,max=72" example:"s3cretpass"`
	ReferralCode string `json:"referral_code,omitempty" validate:"omitempty,referral_code" example:"4539148801"`
}

type RegisterResponseDTO struct {
	Message      string `json:"message"`
	ReferralCode string `json:"referral_code" example:"7992739875"`
}

type LoginRequestDTO struct {
	Email    string `json:"email" validate:"required,email" example:"player@betwise.io"`
	Password string `json:"password" validate:"required" example:"s3cretpass"`
}

type LoginResponseDTO struct {
	Message string `json:"message"`
}
