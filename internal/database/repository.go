package database

// AccountRepository backs the editor's own user accounts. Floorplan data
// lives with the collaborator, not here.
type AccountRepository interface {
	Ping() error
	Close() error
	CreateAccount(params CreateAccountParams) (User, error)
	UpdateAccount(params UpdateAccountParams) (User, error)
	GetAccountById(accountId int) (User, error)
	GetAccountByEmail(email string) (User, error)
}
