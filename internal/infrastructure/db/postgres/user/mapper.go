package user

import (
	domain "user-registry-api/internal/domain/user"
)

func fromDBModel(model *User) *domain.User {
	var u = &domain.User{
		ID:           domain.ID(model.ID),
		Name:         model.Name,
		Email:        model.Email,
		PasswordHash: model.PasswordHash,
		BirthDate:    model.BirthDate,
		Phone:        model.Phone,
		Active:       model.Active,

		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}

	return u
}

func fromDBModels(models Users) domain.Users {
	us := make(domain.Users, len(models))
	for idx, u := range models {
		us[idx] = fromDBModel(u)
	}

	return us
}
