package user

type (
	CreateRequest struct {
		Name      string  `json:"name"`
		Email     string  `json:"email"`
		Password  string  `json:"password"`
		BirthDate string  `json:"birthDate"`
		Phone     *string `json:"phone"`
	}
	UpdateRequest struct {
		Name      string  `json:"name"`
		Email     string  `json:"email"`
		BirthDate string  `json:"birthDate"`
		Phone     *string `json:"phone"`
		Active    *bool   `json:"active"`
	}
)
