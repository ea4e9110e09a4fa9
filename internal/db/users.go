package db

import (
	"database/sql"
	"fmt"

	"github.com/ALT-F4-LLC/trackmove/internal/model"
)

// UpsertUser inserts u keyed by account id, or refreshes the stored email and
// display name when the account is already known. Empty fields never
// overwrite stored values and the target account id is left untouched.
// u.ID is set to the row id, which is also returned.
func UpsertUser(q queryer, u *model.User) (int, error) {
	if u == nil || u.AccountID == "" {
		return 0, fmt.Errorf("upserting user: account id is required")
	}

	var id int
	err := q.QueryRow(
		`INSERT INTO users (account_id, email, display_name)
		 VALUES (?, ?, ?)
		 ON CONFLICT(account_id) DO UPDATE SET
			email = COALESCE(excluded.email, users.email),
			display_name = COALESCE(excluded.display_name, users.display_name)
		 RETURNING id`,
		u.AccountID,
		nullString(u.Email),
		nullString(u.DisplayName),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upserting user %s: %w", u.AccountID, err)
	}

	u.ID = id
	return id, nil
}

// ListUnresolvedUsers returns users that have an email but no target account
// id, ordered by id.
func ListUnresolvedUsers(db *sql.DB) ([]*model.User, error) {
	rows, err := db.Query(
		`SELECT id, account_id, email, display_name, target_account_id
		 FROM users
		 WHERE email IS NOT NULL AND email != '' AND target_account_id IS NULL
		 ORDER BY id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying unresolved users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating user rows: %w", err)
	}

	return users, nil
}

// SetUserTargetAccountID records the target account resolved for a user.
func SetUserTargetAccountID(ex execer, userID int, accountID string) error {
	if accountID == "" {
		return fmt.Errorf("setting target account for user %d: empty account id", userID)
	}
	res, err := ex.Exec(`UPDATE users SET target_account_id = ? WHERE id = ?`, accountID, userID)
	if err != nil {
		return fmt.Errorf("setting target account for user %d: %w", userID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// getUsersByIDs loads users keyed by row id. Unknown ids are skipped.
func getUsersByIDs(q queryer, ids []int) (map[int]*model.User, error) {
	users := make(map[int]*model.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := q.Query(
		fmt.Sprintf(
			`SELECT id, account_id, email, display_name, target_account_id
			 FROM users WHERE id IN (%s)`, makePlaceholders(len(ids)),
		),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user row: %w", err)
		}
		users[u.ID] = u
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating user rows: %w", err)
	}

	return users, nil
}

func scanUser(s scanner) (*model.User, error) {
	var u model.User
	var email, name, target sql.NullString
	if err := s.Scan(&u.ID, &u.AccountID, &email, &name, &target); err != nil {
		return nil, err
	}
	u.Email = email.String
	u.DisplayName = name.String
	u.TargetAccountID = target.String
	return &u, nil
}
