package database

// EventHubRepository is the read side of the platform's relational store.
// User, event and registration records are owned by the CRUD services;
// the realtime core only resolves identities and membership through it.
type EventHubRepository interface {
	Ping() error
	GetAccountById(userId int64) (User, error)
	GetAccountByEmail(email string) (User, error)
	GetAccountsByIds(userIds []int64) ([]User, error)
	GetAdminIds() ([]int64, error)
	GetEventById(eventId int64) (Event, error)
	RegistrationExists(userId, eventId int64) bool
	ListRegistrantIds(eventId int64) ([]int64, error)
}
