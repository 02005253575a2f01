package models

// User is an account row. Password holds a bcrypt hash.
type User struct {
	Id       string
	Email    string
	Password string
}

type UserDto struct {
	Email string `json:"email"`
	Pass  string `json:"pass"`
}
