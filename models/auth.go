package models

type InfoUser struct {
	ID        int
	IsAdmin   bool
	IsCashier bool
	Read      bool
	Roles     []int
	Email     string
}
