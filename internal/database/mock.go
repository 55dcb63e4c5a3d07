package database

import (
	"github.com/stretchr/testify/mock"
)

type MockEventHubRepository struct {
	mock.Mock
}

func (m *MockEventHubRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockEventHubRepository) GetAccountById(userId int64) (User, error) {
	args := m.Called(userId)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockEventHubRepository) GetAccountByEmail(email string) (User, error) {
	args := m.Called(email)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockEventHubRepository) GetAccountsByIds(userIds []int64) ([]User, error) {
	args := m.Called(userIds)
	return args.Get(0).([]User), args.Error(1)
}
func (m *MockEventHubRepository) GetAdminIds() ([]int64, error) {
	args := m.Called()
	return args.Get(0).([]int64), args.Error(1)
}
func (m *MockEventHubRepository) GetEventById(eventId int64) (Event, error) {
	args := m.Called(eventId)
	return args.Get(0).(Event), args.Error(1)
}
func (m *MockEventHubRepository) RegistrationExists(userId, eventId int64) bool {
	args := m.Called(userId, eventId)
	return args.Bool(0)
}
func (m *MockEventHubRepository) ListRegistrantIds(eventId int64) ([]int64, error) {
	args := m.Called(eventId)
	return args.Get(0).([]int64), args.Error(1)
}
