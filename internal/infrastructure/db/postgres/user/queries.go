package user

const (
	userColumns = `id, name, email, password_hash, birth_date, phone, active, created_at, updated_at`

	SelectUsers = `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY id
	`
	SelectUserByID = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1
	`
	SelectEmailExists = `
		SELECT EXISTS (SELECT 1 FROM users WHERE lower(email) = lower($1))
	`
	InsertUser = `
		INSERT INTO users (name, email, password_hash, birth_date, phone, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + userColumns
	UpdateUserByID = `
		UPDATE users
		SET name = $1,
		    email = $2,
		    birth_date = $3,
		    phone = $4,
		    active = $5,
		    updated_at = GREATEST($6, created_at)
		WHERE id = $7
		RETURNING ` + userColumns
	DeactivateUserByID = `
		UPDATE users
		SET active = FALSE,
		    updated_at = GREATEST($2, created_at)
		WHERE id = $1
		RETURNING ` + userColumns
)
