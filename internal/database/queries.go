package database

import (
	"github.com/lib/pq"
)

func (db *PgEventHubRepository) GetAccountById(userId int64) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, role, created_at, updated_at FROM users "+
			"WHERE id = $1 LIMIT 1",
		userId,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.EmailAddress,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	return user, err
}

func (db *PgEventHubRepository) GetAccountByEmail(email string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, role, password_hash, created_at, updated_at FROM users "+
			"WHERE email = $1 LIMIT 1",
		email,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.EmailAddress,
		&user.Role,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	return user, err
}

func (db *PgEventHubRepository) GetAccountsByIds(userIds []int64) ([]User, error) {
	rows, err := db.conn.Query(
		"SELECT id, username, email, role FROM users "+
			"WHERE id = ANY($1)",
		pq.Array(userIds),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var user User
		if err := rows.Scan(
			&user.Id,
			&user.Username,
			&user.EmailAddress,
			&user.Role,
		); err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

func (db *PgEventHubRepository) GetAdminIds() ([]int64, error) {
	rows, err := db.conn.Query(
		"SELECT id FROM users WHERE role = 'admin'",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func (db *PgEventHubRepository) GetEventById(eventId int64) (Event, error) {
	row := db.conn.QueryRow(
		"SELECT id, title, creator_id, created_at, updated_at FROM events "+
			"WHERE id = $1 LIMIT 1",
		eventId,
	)

	var event Event
	err := row.Scan(
		&event.Id,
		&event.Title,
		&event.OwnerId,
		&event.CreatedAt,
		&event.UpdatedAt,
	)

	return event, err
}

func (db *PgEventHubRepository) RegistrationExists(userId, eventId int64) bool {
	row := db.conn.QueryRow(
		"SELECT EXISTS (SELECT 1 FROM registrations WHERE user_id = $1 AND event_id = $2)",
		userId,
		eventId,
	)

	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false
	}

	return exists
}

func (db *PgEventHubRepository) ListRegistrantIds(eventId int64) ([]int64, error) {
	rows, err := db.conn.Query(
		"SELECT user_id FROM registrations WHERE event_id = $1",
		eventId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
