package user

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"user-registry-api/internal/domain/user"
)

func ToView(u user.User) View {
	var v = View{
		ID:        int64(u.ID),
		Name:      u.Name,
		Email:     u.Email,
		BirthDate: u.BirthDate.Format(time.DateOnly),
		Phone:     u.Phone,
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
	}

	return v
}

func ToViews(us user.Users) Views {
	vs := make(Views, len(us))
	for idx, u := range us {
		vs[idx] = ToView(*u)
	}

	return vs
}

// Normalize trims the request fields and lower-cases the email. It runs
// once, before validation.
func (r *CreateRequest) Normalize() {
	r.Name = normalizeName(r.Name)
	r.Email = user.NormalizeEmail(r.Email)
	r.Phone = normalizePhone(r.Phone)
}

func (r *UpdateRequest) Normalize() {
	r.Name = normalizeName(r.Name)
	r.Email = user.NormalizeEmail(r.Email)
	r.Phone = normalizePhone(r.Phone)
}

func ToRegistration(r CreateRequest, birthDate time.Time) user.Registration {
	return user.Registration{
		Name:      r.Name,
		Email:     r.Email,
		Password:  r.Password,
		BirthDate: birthDate,
		Phone:     r.Phone,
	}
}

func ToChanges(r UpdateRequest, birthDate time.Time) user.Changes {
	return user.Changes{
		Name:      r.Name,
		Email:     r.Email,
		BirthDate: birthDate,
		Phone:     r.Phone,
		Active:    r.Active,
	}
}

// normalizeName composes the name to NFC so the length rules count what a
// reader sees.
func normalizeName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// normalizePhone maps an empty phone to absent.
func normalizePhone(p *string) *string {
	if p == nil {
		return nil
	}
	s := strings.TrimSpace(*p)
	if s == "" {
		return nil
	}
	return &s
}
