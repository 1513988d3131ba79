package db

var ConstRoles = struct {
	Admin   int
	Cashier int
}{
	Admin:   1,
	Cashier: 2,
}
