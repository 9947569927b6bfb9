package dto

type CreateBookingRequest struct {
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Phone      string `json:"phone" validate:"required"`
	Address    string `json:"address" validate:"required"`
	CheckIn    string `json:"check_in" validate:"required,datetime=2006-01-02"`
	CheckOut   string `json:"check_out" validate:"required,datetime=2006-01-02"`
	GuestCount int    `json:"guest_count" validate:"required,min=1,max=10"`
	Purpose    string `json:"purpose" validate:"omitempty,oneof=official academic personal other"`
}

type CancelBookingRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=Approved Rejected"`
	Reason string `json:"reason"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
